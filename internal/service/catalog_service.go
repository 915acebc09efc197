package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type classSubjectRepository interface {
	FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error)
	ListByClass(ctx context.Context, classID string, category models.SubjectCategory, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	ListAvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	Create(ctx context.Context, binding *models.ClassSubject) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CatalogService is the read-mostly view of class-subject bindings the
// enrollment core consults. Class listings go through a redis read-through
// cache; per-enrollment elective availability is always read fresh.
type CatalogService struct {
	repo    classSubjectRepository
	cache   catalogCache
	logger  *zap.Logger
	metrics *MetricsService
	ttl     time.Duration
	enabled bool
}

// NewCatalogService constructs the service. cache may be nil when caching is
// disabled.
func NewCatalogService(repo classSubjectRepository, cache catalogCache, logger *zap.Logger, metrics *MetricsService, ttl time.Duration, enabled bool) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger, metrics: metrics, ttl: ttl, enabled: enabled && cache != nil}
}

// Cache keys carry the resolved school so one tenant's view can never be
// served to another.
func (s *CatalogService) cacheKey(classID string, category models.SubjectCategory, scope tenancy.Scope) string {
	schoolKey := "global"
	if schoolID, ok := scope.School(); ok {
		schoolKey = schoolID
	}
	cat := string(category)
	if cat == "" {
		cat = "ALL"
	}
	return fmt.Sprintf("catalog:class_subjects:%s:%s:%s", schoolKey, classID, cat)
}

// ListByClass returns a class's bindings for a category (empty for all).
func (s *CatalogService) ListByClass(ctx context.Context, classID string, category models.SubjectCategory, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if category != "" && !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject category %q", category))
	}

	if s.enabled {
		key := s.cacheKey(classID, category, scope)
		var cached []models.ClassSubjectDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return cached, nil
		} else if !appErrors.IsCacheMiss(err) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
	}

	bindings, err := s.repo.ListByClass(ctx, classID, category, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class subjects")
	}

	if s.enabled {
		key := s.cacheKey(classID, category, scope)
		if err := s.cache.Set(ctx, key, bindings, s.ttl); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return bindings, nil
}

// CoreSubjects returns the CORE bindings for the class.
func (s *CatalogService) CoreSubjects(ctx context.Context, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	return s.ListByClass(ctx, classID, models.SubjectCategoryCore, scope)
}

// FindBinding loads one binding within the scope.
func (s *CatalogService) FindBinding(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error) {
	binding, err := s.repo.FindByID(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	return binding, nil
}

// AvailableElectives returns non-core bindings the enrollment is not yet
// attached to. Never cached: the answer depends on the enrollment's rows.
func (s *CatalogService) AvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	bindings, err := s.repo.ListAvailableElectives(ctx, enrollmentID, classID, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available electives")
	}
	return bindings, nil
}

// CreateBinding adds a class-subject binding and invalidates the class's
// cached listings.
func (s *CatalogService) CreateBinding(ctx context.Context, binding *models.ClassSubject, scope tenancy.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.Allows(binding.SchoolID) {
		return appErrors.Clone(appErrors.ErrAccessDenied, "binding belongs to another school")
	}
	if !binding.Category.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject category %q", binding.Category))
	}
	if err := s.repo.Create(ctx, binding); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class subject")
	}
	if s.enabled {
		pattern := fmt.Sprintf("catalog:class_subjects:*:%s:*", binding.ClassID)
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
	return nil
}
