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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter, scope tenancy.Scope) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Enrollment, error)
	ListActiveByStudent(ctx context.Context, studentID string, scope tenancy.Scope) ([]models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, academicYearID string, scope tenancy.Scope) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Promote(ctx context.Context, studentID, currentClassID string, next *models.Enrollment, scope tenancy.Scope) (int64, error)
	Transfer(ctx context.Context, studentID, newSchoolID, reason string, transferDate time.Time, scope tenancy.Scope) (int64, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, scope tenancy.Scope) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Class, error)
	FindStream(ctx context.Context, id string, scope tenancy.Scope) (*models.Stream, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.AcademicYear, error)
}

type subjectManager interface {
	AutoEnrollCore(ctx context.Context, enrollmentID, classID, schoolID, studentID string, scope tenancy.Scope) (int, error)
	AttachElectives(ctx context.Context, enrollment *models.Enrollment, electiveIDs []string, scope tenancy.Scope) (int, error)
}

// EnrollStudentRequest describes enrollment creation payload.
type EnrollStudentRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	StreamID       *string `json:"stream_id,omitempty"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
}

// PromoteStudentRequest describes promotion payload.
type PromoteStudentRequest struct {
	StudentID          string   `json:"student_id" validate:"required"`
	CurrentClassID     string   `json:"current_class_id" validate:"required"`
	NewClassID         string   `json:"new_class_id" validate:"required"`
	AcademicYearID     string   `json:"academic_year_id" validate:"required"`
	StreamID           *string  `json:"stream_id,omitempty"`
	ElectiveSubjectIDs []string `json:"elective_subject_ids,omitempty"`
}

// TransferStudentRequest describes transfer-out payload.
type TransferStudentRequest struct {
	StudentID    string    `json:"student_id" validate:"required"`
	NewSchoolID  string    `json:"new_school_id" validate:"required"`
	Reason       string    `json:"reason" validate:"required"`
	TransferDate time.Time `json:"transfer_date" validate:"required"`
}

// PromotionResult reports what a promotion touched.
type PromotionResult struct {
	PromotedCount        int64             `json:"promoted_count"`
	NewEnrollment        models.Enrollment `json:"new_enrollment"`
	CoreSubjectsAttached bool              `json:"core_subjects_attached"`
	ElectivesAttached    int               `json:"electives_attached"`
}

// TransferResult reports what a transfer touched.
type TransferResult struct {
	TransferredCount int64 `json:"transferred_count"`
}

// EnrollmentService owns the lifecycle of a student's placement in a
// class/stream/academic-year.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	classes   classReader
	years     academicYearReader
	schools   schoolReader
	subjects  subjectManager
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, classes classReader, years academicYearReader, schools schoolReader, subjects subjectManager, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		classes:   classes,
		years:     years,
		schools:   schools,
		subjects:  subjects,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter, scope tenancy.Scope) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	enrollments, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment visible to the scope.
func (s *EnrollmentService) Get(ctx context.Context, id string, scope tenancy.Scope) (*models.Enrollment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	enrollment, err := s.repo.FindByID(ctx, id, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// validatePlacement checks that student, class, year and optional stream all
// belong to the caller's tenant and to each other. Cross-tenant rows surface
// as not-found, indistinguishable from absent.
func (s *EnrollmentService) validatePlacement(ctx context.Context, studentID, classID string, streamID *string, academicYearID string, scope tenancy.Scope) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is inactive")
	}

	class, err := s.classes.FindByID(ctx, classID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.SchoolID != student.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	year, err := s.years.FindByID(ctx, academicYearID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.SchoolID != student.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}

	if streamID != nil && *streamID != "" {
		stream, err := s.classes.FindStream(ctx, *streamID, scope)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "stream not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stream")
		}
		if stream.ClassID != classID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "stream does not belong to class")
		}
	}

	return student, nil
}

// Enroll places a student into a class for an academic year and then
// attaches the class's core subjects. The subject attachment runs in its own
// transaction on purpose: the record of "student is in this class" must
// survive even when the roster cannot be completed, so a failure there is
// logged and reported as a degraded success rather than rolling back the
// enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest, scope tenancy.Scope) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	student, err := s.validatePlacement(ctx, req.StudentID, req.ClassID, req.StreamID, req.AcademicYearID, scope)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.AcademicYearID, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment for the academic year")
	}

	enrollment := &models.Enrollment{
		SchoolID:       student.SchoolID,
		StudentID:      req.StudentID,
		ClassID:        req.ClassID,
		StreamID:       req.StreamID,
		AcademicYearID: req.AcademicYearID,
		Status:         models.EnrollmentStatusActive,
		EnrolledAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollmentCreated()
	}

	result := &models.EnrollmentResult{Enrollment: *enrollment, CoreSubjectsAttached: true}
	attached, err := s.subjects.AutoEnrollCore(ctx, enrollment.ID, req.ClassID, student.SchoolID, req.StudentID, scope)
	if err != nil {
		s.logger.Error("core subject auto-enrollment failed",
			zap.String("enrollment_id", enrollment.ID),
			zap.String("student_id", req.StudentID),
			zap.String("class_id", req.ClassID),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAutoEnrollFailure()
		}
		result.CoreSubjectsAttached = false
		return result, nil
	}
	result.CoreSubjectCount = attached
	return result, nil
}

// Promote marks every ACTIVE enrollment of the student in the current class
// as PROMOTED and creates the destination enrollment, atomically. Subject
// attachment for the new enrollment happens afterwards, best-effort.
func (s *EnrollmentService) Promote(ctx context.Context, req PromoteStudentRequest, scope tenancy.Scope) (*PromotionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	student, err := s.validatePlacement(ctx, req.StudentID, req.NewClassID, req.StreamID, req.AcademicYearID, scope)
	if err != nil {
		return nil, err
	}

	next := &models.Enrollment{
		SchoolID:       student.SchoolID,
		StudentID:      req.StudentID,
		ClassID:        req.NewClassID,
		StreamID:       req.StreamID,
		AcademicYearID: req.AcademicYearID,
	}
	promoted, err := s.repo.Promote(ctx, req.StudentID, req.CurrentClassID, next, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment in the current class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote student")
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollmentCreated()
	}

	result := &PromotionResult{PromotedCount: promoted, NewEnrollment: *next, CoreSubjectsAttached: true}

	if _, err := s.subjects.AutoEnrollCore(ctx, next.ID, req.NewClassID, student.SchoolID, req.StudentID, scope); err != nil {
		s.logger.Error("core subject auto-enrollment failed after promotion",
			zap.String("enrollment_id", next.ID),
			zap.String("class_id", req.NewClassID),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAutoEnrollFailure()
		}
		result.CoreSubjectsAttached = false
	}

	if len(req.ElectiveSubjectIDs) > 0 {
		attached, err := s.subjects.AttachElectives(ctx, next, req.ElectiveSubjectIDs, scope)
		if err != nil {
			s.logger.Warn("elective attachment failed after promotion",
				zap.String("enrollment_id", next.ID),
				zap.Error(err))
		}
		result.ElectivesAttached = attached
	}

	return result, nil
}

// Transfer moves the student to another school and marks all their ACTIVE
// enrollments TRANSFERRED in one update, so no ACTIVE rows dangle across the
// school change.
func (s *EnrollmentService) Transfer(ctx context.Context, req TransferStudentRequest, scope tenancy.Scope) (*TransferResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.students.FindByID(ctx, req.StudentID, scope); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	school, err := s.schools.FindByID(ctx, req.NewSchoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "destination school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load destination school")
	}
	if !school.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "destination school is inactive")
	}

	transferred, err := s.repo.Transfer(ctx, req.StudentID, req.NewSchoolID, req.Reason, req.TransferDate, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer student")
	}

	s.logger.Info("student transferred",
		zap.String("student_id", req.StudentID),
		zap.String("new_school_id", req.NewSchoolID),
		zap.Int64("enrollments_transferred", transferred))
	return &TransferResult{TransferredCount: transferred}, nil
}

// UpdateStatus overwrites an enrollment's status for administrative
// correction. Reactivating a terminal row is rejected: PROMOTED and
// TRANSFERRED records already point at a successor enrollment, and waking
// them up would silently violate the one-active-per-year rule.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, scope tenancy.Scope) (*models.Enrollment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	enrollment, err := s.repo.FindByID(ctx, id, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status.Terminal() && status == models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot reactivate a promoted or transferred enrollment")
	}

	if err := s.repo.UpdateStatus(ctx, id, status, scope); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	enrollment.Status = status
	return enrollment, nil
}
