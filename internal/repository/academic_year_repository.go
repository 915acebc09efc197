package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

// AcademicYearRepository reads academic year catalog rows.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// FindByID returns an academic year visible to the scope.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.AcademicYear, error) {
	query := `SELECT id, school_id, name, start_date, end_date, current FROM academic_years WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, args...); err != nil {
		return nil, err
	}
	return &year, nil
}
