package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter, scope tenancy.Scope) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
}

type numberIssuer interface {
	Next(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string, overrides *SequenceConfigOverrides) (string, error)
}

// CreateStudentRequest describes student creation payload.
type CreateStudentRequest struct {
	SchoolID  string    `json:"school_id,omitempty"`
	FullName  string    `json:"full_name" validate:"required"`
	Gender    string    `json:"gender" validate:"required,oneof=MALE FEMALE"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
}

// StudentService manages student records. Admission numbers are minted
// through the number registry at creation time, never derived locally.
type StudentService struct {
	repo      studentRepository
	sequences numberIssuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, sequences numberIssuer, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, sequences: sequences, validator: validate, logger: logger}
}

// Create registers a new student with a freshly minted admission number.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest, scope tenancy.Scope) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	schoolID := req.SchoolID
	if schoolID == "" {
		resolved, ok := scope.School()
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required for superuser callers")
		}
		schoolID = resolved
	}
	if !scope.Allows(schoolID) {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "cannot create student in another school")
	}

	admissionNo, err := s.sequences.Next(ctx, models.NumberKindAdmission, scope, schoolID, nil)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		SchoolID:    schoolID,
		AdmissionNo: admissionNo,
		FullName:    req.FullName,
		Gender:      req.Gender,
		BirthDate:   req.BirthDate,
		Active:      true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student created",
		zap.String("student_id", student.ID),
		zap.String("school_id", schoolID),
		zap.String("admission_no", admissionNo))
	return student, nil
}

// Get returns one student visible to the scope.
func (s *StudentService) Get(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter, scope tenancy.Scope) ([]models.Student, *models.Pagination, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
