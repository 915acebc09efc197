package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

// ClassSubjectRepository manages class-subject bindings: which subjects a
// class offers, tagged core or elective. Read-mostly from the enrollment
// core's perspective.
type ClassSubjectRepository struct {
	db *sqlx.DB
}

// NewClassSubjectRepository creates a new repository.
func NewClassSubjectRepository(db *sqlx.DB) *ClassSubjectRepository {
	return &ClassSubjectRepository{db: db}
}

// FindByID returns a binding visible to the scope.
func (r *ClassSubjectRepository) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error) {
	query := `SELECT id, school_id, class_id, stream_id, subject_id, academic_year_id, term, category, teacher_id, created_at
        FROM class_subjects WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var binding models.ClassSubject
	if err := r.db.GetContext(ctx, &binding, query, args...); err != nil {
		return nil, err
	}
	return &binding, nil
}

// ListByClass returns bindings for a class, optionally narrowed to one
// category.
func (r *ClassSubjectRepository) ListByClass(ctx context.Context, classID string, category models.SubjectCategory, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	query := `SELECT cs.id, cs.school_id, cs.class_id, cs.stream_id, cs.subject_id, cs.academic_year_id,
        cs.term, cs.category, cs.teacher_id, cs.created_at,
        s.name AS subject_name, s.code AS subject_code
        FROM class_subjects cs
        JOIN subjects s ON s.id = cs.subject_id
        WHERE cs.class_id = $1`
	args := []interface{}{classID}
	if category != "" {
		query += fmt.Sprintf(" AND cs.category = $%d", len(args)+1)
		args = append(args, category)
	}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, nil
		}
		query += fmt.Sprintf(" AND cs.school_id = $%d", len(args)+1)
		args = append(args, schoolID)
	}
	query += " ORDER BY s.name ASC"

	var bindings []models.ClassSubjectDetail
	if err := r.db.SelectContext(ctx, &bindings, query, args...); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return bindings, nil
}

// ListAvailableElectives returns the non-core bindings of the class that the
// enrollment is not yet attached to, in any status: a previously dropped
// binding is already attached and must be re-activated, not re-listed.
func (r *ClassSubjectRepository) ListAvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	query := `SELECT cs.id, cs.school_id, cs.class_id, cs.stream_id, cs.subject_id, cs.academic_year_id,
        cs.term, cs.category, cs.teacher_id, cs.created_at,
        s.name AS subject_name, s.code AS subject_code
        FROM class_subjects cs
        JOIN subjects s ON s.id = cs.subject_id
        WHERE cs.class_id = $1 AND cs.category <> $2
          AND NOT EXISTS (
            SELECT 1 FROM subject_enrollments se
            WHERE se.enrollment_id = $3 AND se.class_subject_id = cs.id
          )`
	args := []interface{}{classID, models.SubjectCategoryCore, enrollmentID}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, nil
		}
		query += fmt.Sprintf(" AND cs.school_id = $%d", len(args)+1)
		args = append(args, schoolID)
	}
	query += " ORDER BY s.name ASC"

	var bindings []models.ClassSubjectDetail
	if err := r.db.SelectContext(ctx, &bindings, query, args...); err != nil {
		return nil, fmt.Errorf("list available electives: %w", err)
	}
	return bindings, nil
}

// Create persists a new binding.
func (r *ClassSubjectRepository) Create(ctx context.Context, binding *models.ClassSubject) error {
	if binding.ID == "" {
		binding.ID = uuid.NewString()
	}
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_subjects (id, school_id, class_id, stream_id, subject_id, academic_year_id, term, category, teacher_id, created_at)
        VALUES (:id, :school_id, :class_id, :stream_id, :subject_id, :academic_year_id, :term, :category, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, binding); err != nil {
		return fmt.Errorf("create class subject: %w", err)
	}
	return nil
}
