package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

// SubjectEnrollmentRepository persists per-subject enrollment records. The
// pair (enrollment_id, class_subject_id) is unique; re-enrollment after a
// drop reactivates the row via upsert instead of inserting a duplicate.
type SubjectEnrollmentRepository struct {
	db *sqlx.DB
}

// NewSubjectEnrollmentRepository constructs the repository.
func NewSubjectEnrollmentRepository(db *sqlx.DB) *SubjectEnrollmentRepository {
	return &SubjectEnrollmentRepository{db: db}
}

const subjectEnrollmentUpsert = `INSERT INTO subject_enrollments (id, school_id, enrollment_id, class_subject_id, student_id, status, enrolled_at, dropped_at)
VALUES (:id, :school_id, :enrollment_id, :class_subject_id, :student_id, :status, :enrolled_at, NULL)
ON CONFLICT (enrollment_id, class_subject_id)
DO UPDATE SET status = EXCLUDED.status, dropped_at = NULL`

// CreateBatch inserts one record per entry inside a single transaction.
// Used for the core-subject auto batch: all-or-nothing.
func (r *SubjectEnrollmentRepository) CreateBatch(ctx context.Context, records []models.SubjectEnrollment) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject enrollment batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, record := range records {
		payload := record
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.SubjectEnrollmentStatusActive
		}
		if payload.EnrolledAt.IsZero() {
			payload.EnrolledAt = now
		}
		if _, err = tx.NamedExecContext(ctx, subjectEnrollmentUpsert, &payload); err != nil {
			return fmt.Errorf("insert subject enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit subject enrollment batch: %w", err)
	}
	return nil
}

// Upsert activates the record for (enrollment, binding), clearing any
// previous drop. The unique key makes this safe under concurrent callers.
func (r *SubjectEnrollmentRepository) Upsert(ctx context.Context, record *models.SubjectEnrollment) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.SubjectEnrollmentStatusActive
	}
	if record.EnrolledAt.IsZero() {
		record.EnrolledAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, subjectEnrollmentUpsert, record); err != nil {
		return fmt.Errorf("upsert subject enrollment: %w", err)
	}
	return nil
}

// Find returns the record for (enrollment, binding) visible to the scope.
func (r *SubjectEnrollmentRepository) Find(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) (*models.SubjectEnrollment, error) {
	query := `SELECT id, school_id, enrollment_id, class_subject_id, student_id, status, enrolled_at, dropped_at
        FROM subject_enrollments WHERE enrollment_id = $1 AND class_subject_id = $2`
	args := []interface{}{enrollmentID, classSubjectID}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $3"
		args = append(args, schoolID)
	}
	var record models.SubjectEnrollment
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, err
	}
	return &record, nil
}

// Drop marks the record DROPPED and stamps dropped_at. Missing rows surface
// as sql.ErrNoRows.
func (r *SubjectEnrollmentRepository) Drop(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) error {
	query := `UPDATE subject_enrollments SET status = $1, dropped_at = $2 WHERE enrollment_id = $3 AND class_subject_id = $4`
	args := []interface{}{models.SubjectEnrollmentStatusDropped, time.Now().UTC(), enrollmentID, classSubjectID}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return sql.ErrNoRows
		}
		query += " AND school_id = $5"
		args = append(args, schoolID)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("drop subject enrollment: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns subject enrollments filtered by enrollment or binding.
func (r *SubjectEnrollmentRepository) List(ctx context.Context, filter models.SubjectEnrollmentFilter, scope tenancy.Scope) ([]models.SubjectEnrollmentDetail, int, error) {
	base := `FROM subject_enrollments se
JOIN class_subjects cs ON cs.id = se.class_subject_id
JOIN subjects s ON s.id = cs.subject_id`
	var conditions []string
	var args []interface{}

	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, 0, nil
		}
		conditions = append(conditions, fmt.Sprintf("se.school_id = $%d", len(args)+1))
		args = append(args, schoolID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("se.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.ClassSubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("se.class_subject_id = $%d", len(args)+1))
		args = append(args, filter.ClassSubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("se.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT se.id, se.school_id, se.enrollment_id, se.class_subject_id, se.student_id,
        se.status, se.enrolled_at, se.dropped_at,
        s.name AS subject_name, s.code AS subject_code, cs.category
        %s ORDER BY se.enrolled_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var records []models.SubjectEnrollmentDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subject enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subject enrollments: %w", err)
	}
	return records, total, nil
}

// UpsertBatch activates records for many enrollments against one binding in
// a single transaction. Each row goes through the same upsert as Upsert, so
// dropped rows reactivate instead of duplicating.
func (r *SubjectEnrollmentRepository) UpsertBatch(ctx context.Context, records []models.SubjectEnrollment) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk subject enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, record := range records {
		payload := record
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.SubjectEnrollmentStatusActive
		}
		if payload.EnrolledAt.IsZero() {
			payload.EnrolledAt = now
		}
		if _, err = tx.NamedExecContext(ctx, subjectEnrollmentUpsert, &payload); err != nil {
			return fmt.Errorf("bulk upsert subject enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk subject enrollment: %w", err)
	}
	return nil
}
