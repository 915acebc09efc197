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

// EnrollmentRepository handles persistence of enrollments. Every query is
// conjoined with the caller's school unless the scope is superuser; a
// restricted scope with no school matches nothing.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter, scope tenancy.Scope) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN classes c ON c.id = e.class_id
LEFT JOIN academic_years y ON y.id = e.academic_year_id`
	var conditions []string
	var args []interface{}

	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, 0, nil
		}
		conditions = append(conditions, fmt.Sprintf("e.school_id = $%d", len(args)+1))
		args = append(args, schoolID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"class_name":   "c.name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrolled_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT e.id, e.school_id, e.student_id, e.class_id, e.stream_id, e.academic_year_id,
        e.status, e.promoted_to_class_id, e.promotion_date, e.transfer_date, e.transfer_reason, e.enrolled_at,
        s.full_name AS student_name, s.admission_no AS student_admission, c.name AS class_name, y.name AS academic_year_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment visible to the scope.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Enrollment, error) {
	query := `SELECT id, school_id, student_id, class_id, stream_id, academic_year_id, status,
        promoted_to_class_id, promotion_date, transfer_date, transfer_reason, enrolled_at
        FROM enrollments WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, args...); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveByStudent returns a student's ACTIVE enrollments.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID string, scope tenancy.Scope) ([]models.Enrollment, error) {
	query := `SELECT id, school_id, student_id, class_id, stream_id, academic_year_id, status,
        promoted_to_class_id, promotion_date, transfer_date, transfer_reason, enrolled_at
        FROM enrollments WHERE student_id = $1 AND status = $2`
	args := []interface{}{studentID, models.EnrollmentStatusActive}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, nil
		}
		query += " AND school_id = $3"
		args = append(args, schoolID)
	}
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsActive checks for an ACTIVE enrollment of the student in the year.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, academicYearID string, scope tenancy.Scope) (bool, error) {
	query := "SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 AND status = $3"
	args := []interface{}{studentID, academicYearID, models.EnrollmentStatusActive}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return false, nil
		}
		query += " AND school_id = $4"
		args = append(args, schoolID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, school_id, student_id, class_id, stream_id, academic_year_id, status, enrolled_at)
        VALUES (:id, :school_id, :student_id, :class_id, :stream_id, :academic_year_id, :status, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Promote marks every ACTIVE enrollment of the student in the current class
// as PROMOTED with a forward pointer, and creates the destination enrollment,
// all in one transaction. The bulk match is deliberate: if duplicate ACTIVE
// rows exist upstream, promotion must not leave any behind. Returns the
// number of rows promoted.
func (r *EnrollmentRepository) Promote(ctx context.Context, studentID, currentClassID string, next *models.Enrollment, scope tenancy.Scope) (int64, error) {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if next.EnrolledAt.IsZero() {
		next.EnrolledAt = time.Now().UTC()
	}
	next.Status = models.EnrollmentStatusActive

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin promote: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	update := `UPDATE enrollments SET status = $1, promoted_to_class_id = $2, promotion_date = $3
        WHERE student_id = $4 AND class_id = $5 AND status = $6`
	args := []interface{}{models.EnrollmentStatusPromoted, next.ClassID, now, studentID, currentClassID, models.EnrollmentStatusActive}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			err = sql.ErrNoRows
			return 0, err
		}
		update += " AND school_id = $7"
		args = append(args, schoolID)
	}

	var result sql.Result
	if result, err = tx.ExecContext(ctx, update, args...); err != nil {
		return 0, fmt.Errorf("promote enrollments: %w", err)
	}
	promoted, _ := result.RowsAffected()
	if promoted == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	const insert = `INSERT INTO enrollments (id, school_id, student_id, class_id, stream_id, academic_year_id, status, enrolled_at)
        VALUES (:id, :school_id, :student_id, :class_id, :stream_id, :academic_year_id, :status, :enrolled_at)`
	if _, err = tx.NamedExecContext(ctx, insert, next); err != nil {
		return 0, fmt.Errorf("create promoted enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit promote: %w", err)
	}
	return promoted, nil
}

// Transfer moves the student to a new school and marks every ACTIVE
// enrollment TRANSFERRED in one transaction, so no dangling ACTIVE rows
// survive a school change. Returns the number of enrollments transferred.
func (r *EnrollmentRepository) Transfer(ctx context.Context, studentID, newSchoolID, reason string, transferDate time.Time, scope tenancy.Scope) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transfer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	move := `UPDATE students SET school_id = $1, updated_at = $2 WHERE id = $3`
	moveArgs := []interface{}{newSchoolID, time.Now().UTC(), studentID}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			err = sql.ErrNoRows
			return 0, err
		}
		move += " AND school_id = $4"
		moveArgs = append(moveArgs, schoolID)
	}

	var result sql.Result
	if result, err = tx.ExecContext(ctx, move, moveArgs...); err != nil {
		return 0, fmt.Errorf("move student: %w", err)
	}
	if moved, _ := result.RowsAffected(); moved == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	const update = `UPDATE enrollments SET status = $1, transfer_date = $2, transfer_reason = $3
        WHERE student_id = $4 AND status = $5`
	if result, err = tx.ExecContext(ctx, update, models.EnrollmentStatusTransferred, transferDate, reason, studentID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("transfer enrollments: %w", err)
	}
	transferred, _ := result.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transfer: %w", err)
	}
	return transferred, nil
}

// UpdateStatus overwrites the status of one enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, scope tenancy.Scope) error {
	query := `UPDATE enrollments SET status = $1 WHERE id = $2`
	args := []interface{}{status, id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return sql.ErrNoRows
		}
		query += " AND school_id = $3"
		args = append(args, schoolID)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
