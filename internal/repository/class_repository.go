package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

// ClassRepository reads class and stream catalog rows the enrollment core
// validates against.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class visible to the scope.
func (r *ClassRepository) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Class, error) {
	query := `SELECT id, school_id, name, level, created_at, updated_at FROM classes WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, args...); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindStream returns a stream visible to the scope.
func (r *ClassRepository) FindStream(ctx context.Context, id string, scope tenancy.Scope) (*models.Stream, error) {
	query := `SELECT id, school_id, class_id, name FROM streams WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var stream models.Stream
	if err := r.db.GetContext(ctx, &stream, query, args...); err != nil {
		return nil, err
	}
	return &stream, nil
}
