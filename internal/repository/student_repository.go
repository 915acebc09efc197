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

// StudentRepository persists student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student visible to the scope.
func (r *StudentRepository) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error) {
	query := `SELECT id, school_id, admission_no, full_name, gender, birth_date, active, created_at, updated_at
        FROM students WHERE id = $1`
	args := []interface{}{id}
	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, sql.ErrNoRows
		}
		query += " AND school_id = $2"
		args = append(args, schoolID)
	}
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students for the scope with filtering and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, scope tenancy.Scope) ([]models.Student, int, error) {
	base := "FROM students st"
	var conditions []string
	var args []interface{}

	if scope.Restricted() {
		schoolID, ok := scope.School()
		if !ok {
			return nil, 0, nil
		}
		conditions = append(conditions, fmt.Sprintf("st.school_id = $%d", len(args)+1))
		args = append(args, schoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(st.full_name ILIKE $%d OR st.admission_no ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("st.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e WHERE e.student_id = st.id AND e.class_id = $%d AND e.status = $%d)", len(args)+1, len(args)+2))
		args = append(args, filter.ClassID, models.EnrollmentStatusActive)
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

	query := fmt.Sprintf(`SELECT st.id, st.school_id, st.admission_no, st.full_name, st.gender, st.birth_date,
        st.active, st.created_at, st.updated_at %s ORDER BY st.full_name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Create persists a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, school_id, admission_no, full_name, gender, birth_date, active, created_at, updated_at)
        VALUES (:id, :school_id, :admission_no, :full_name, :gender, :birth_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
