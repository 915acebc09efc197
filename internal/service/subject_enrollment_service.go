package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type subjectEnrollmentRepository interface {
	CreateBatch(ctx context.Context, records []models.SubjectEnrollment) error
	Upsert(ctx context.Context, record *models.SubjectEnrollment) error
	Find(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) (*models.SubjectEnrollment, error)
	Drop(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) error
	List(ctx context.Context, filter models.SubjectEnrollmentFilter, scope tenancy.Scope) ([]models.SubjectEnrollmentDetail, int, error)
	UpsertBatch(ctx context.Context, records []models.SubjectEnrollment) error
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Enrollment, error)
}

type bindingCatalog interface {
	CoreSubjects(ctx context.Context, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	FindBinding(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error)
	AvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
}

// SubjectEnrollmentService owns per-subject enrollment records nested under
// an enrollment.
type SubjectEnrollmentService struct {
	repo        subjectEnrollmentRepository
	enrollments enrollmentReader
	catalog     bindingCatalog
	logger      *zap.Logger
}

// NewSubjectEnrollmentService constructs the service.
func NewSubjectEnrollmentService(repo subjectEnrollmentRepository, enrollments enrollmentReader, catalog bindingCatalog, logger *zap.Logger) *SubjectEnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectEnrollmentService{repo: repo, enrollments: enrollments, catalog: catalog, logger: logger}
}

// AutoEnrollCore attaches every CORE binding of the class to the enrollment,
// all in one transaction. Returns the number of subjects attached.
func (s *SubjectEnrollmentService) AutoEnrollCore(ctx context.Context, enrollmentID, classID, schoolID, studentID string, scope tenancy.Scope) (int, error) {
	core, err := s.catalog.CoreSubjects(ctx, classID, scope)
	if err != nil {
		return 0, err
	}
	if len(core) == 0 {
		return 0, nil
	}

	records := make([]models.SubjectEnrollment, 0, len(core))
	for _, binding := range core {
		records = append(records, models.SubjectEnrollment{
			SchoolID:       schoolID,
			EnrollmentID:   enrollmentID,
			ClassSubjectID: binding.ID,
			StudentID:      studentID,
			Status:         models.SubjectEnrollmentStatusActive,
		})
	}
	if err := s.repo.CreateBatch(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach core subjects")
	}
	return len(records), nil
}

// EnrollInSubject attaches one binding to the enrollment. A dropped record
// reactivates; an existing non-dropped record is a conflict.
func (s *SubjectEnrollmentService) EnrollInSubject(ctx context.Context, studentID, classSubjectID, enrollmentID string, scope tenancy.Scope) (*models.SubjectEnrollment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment does not belong to student")
	}

	binding, err := s.catalog.FindBinding(ctx, classSubjectID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject binding not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject binding")
	}
	if binding.ClassID != enrollment.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is not offered in the enrollment's class")
	}
	if binding.SchoolID != enrollment.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject binding not found")
	}

	existing, err := s.repo.Find(ctx, enrollmentID, classSubjectID, scope)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject enrollment")
	}
	if existing != nil && existing.Status != models.SubjectEnrollmentStatusDropped {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in subject")
	}

	record := &models.SubjectEnrollment{
		SchoolID:       enrollment.SchoolID,
		EnrollmentID:   enrollmentID,
		ClassSubjectID: classSubjectID,
		StudentID:      studentID,
		Status:         models.SubjectEnrollmentStatusActive,
	}
	if existing != nil {
		record.ID = existing.ID
		record.EnrolledAt = existing.EnrolledAt
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll in subject")
	}
	record.Status = models.SubjectEnrollmentStatusActive
	record.DroppedAt = nil
	return record, nil
}

// AttachElectives best-effort attaches the selected elective bindings to the
// enrollment, skipping invalid selections. Returns how many were attached.
func (s *SubjectEnrollmentService) AttachElectives(ctx context.Context, enrollment *models.Enrollment, electiveIDs []string, scope tenancy.Scope) (int, error) {
	attached := 0
	for _, bindingID := range electiveIDs {
		if _, err := s.EnrollInSubject(ctx, enrollment.StudentID, bindingID, enrollment.ID, scope); err != nil {
			s.logger.Warn("elective attach failed",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("class_subject_id", bindingID),
				zap.Error(err))
			continue
		}
		attached++
	}
	return attached, nil
}

// BulkEnroll upserts one record per enrollment against the binding, in a
// single transaction. Dropped rows reactivate; existing ACTIVE rows are
// refreshed, never duplicated.
func (s *SubjectEnrollmentService) BulkEnroll(ctx context.Context, enrollmentIDs []string, classSubjectID string, scope tenancy.Scope) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	if len(enrollmentIDs) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no enrollments provided")
	}

	binding, err := s.catalog.FindBinding(ctx, classSubjectID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "subject binding not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject binding")
	}

	records := make([]models.SubjectEnrollment, 0, len(enrollmentIDs))
	for _, enrollmentID := range enrollmentIDs {
		enrollment, err := s.enrollments.FindByID(ctx, enrollmentID, scope)
		if err != nil {
			if err == sql.ErrNoRows {
				return 0, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.ClassID != binding.ClassID {
			return 0, appErrors.Clone(appErrors.ErrValidation, "subject is not offered in every enrollment's class")
		}
		records = append(records, models.SubjectEnrollment{
			SchoolID:       enrollment.SchoolID,
			EnrollmentID:   enrollment.ID,
			ClassSubjectID: classSubjectID,
			StudentID:      enrollment.StudentID,
			Status:         models.SubjectEnrollmentStatusActive,
		})
	}

	if err := s.repo.UpsertBatch(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk enroll")
	}
	return len(records), nil
}

// Drop marks the subject enrollment DROPPED.
func (s *SubjectEnrollmentService) Drop(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.repo.Drop(ctx, enrollmentID, classSubjectID, scope); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop subject")
	}
	return nil
}

// AvailableElectives lists non-core bindings the enrollment can still join.
func (s *SubjectEnrollmentService) AvailableElectives(ctx context.Context, enrollmentID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return s.catalog.AvailableElectives(ctx, enrollmentID, enrollment.ClassID, scope)
}

// List returns subject enrollments with pagination metadata.
func (s *SubjectEnrollmentService) List(ctx context.Context, filter models.SubjectEnrollmentFilter, scope tenancy.Scope) ([]models.SubjectEnrollmentDetail, *models.Pagination, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	records, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
