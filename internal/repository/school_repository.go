package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shulecore/academic-api/internal/models"
)

// SchoolRepository reads tenant rows. Lookups here are not scope-filtered:
// the school code is needed when formatting identifiers for that tenant, and
// transfer targets are other tenants by definition. Callers gate access.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns the school row.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, code, motto, active, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}
