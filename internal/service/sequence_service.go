package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/repository"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

// Default configurations per number kind. The kind set is closed; new series
// get a new constant and an entry here, never ad hoc string dispatch.
var sequenceConfigs = map[models.NumberKind]models.SequenceConfig{
	models.NumberKindAdmission: {
		Prefix:            "ADM",
		Width:             4,
		Separator:         "/",
		IncludeYear:       true,
		IncludeSchoolCode: true,
		AnnualReset:       true,
		PerSchool:         true,
	},
	models.NumberKindEmployee: {
		Prefix:            "EMP",
		Width:             4,
		Separator:         "/",
		IncludeYear:       false,
		IncludeSchoolCode: true,
		AnnualReset:       false,
		PerSchool:         true,
	},
	models.NumberKindReceipt: {
		Prefix:            "RCT",
		Width:             6,
		Separator:         "/",
		IncludeYear:       true,
		IncludeSchoolCode: false,
		AnnualReset:       true,
		PerSchool:         true,
	},
}

// ConfigForKind returns the formatting and keying config for a kind.
func ConfigForKind(kind models.NumberKind) (models.SequenceConfig, bool) {
	cfg, ok := sequenceConfigs[kind]
	return cfg, ok
}

// FormatNumber assembles the externally visible identifier:
// PREFIX<sep>[YEAR<sep>][SCHOOLCODE<sep>]NNNN. The width is a minimum; large
// values are never truncated. Formatting is pure presentation; uniqueness
// comes solely from the counter value.
func FormatNumber(cfg models.SequenceConfig, value int64, year int, schoolCode string) string {
	parts := []string{cfg.Prefix}
	if cfg.IncludeYear {
		parts = append(parts, strconv.Itoa(year))
	}
	if cfg.IncludeSchoolCode && schoolCode != "" {
		parts = append(parts, schoolCode)
	}
	number := strconv.FormatInt(value, 10)
	if pad := cfg.Width - len(number); pad > 0 {
		number = strings.Repeat("0", pad) + number
	}
	parts = append(parts, number)
	return strings.Join(parts, cfg.Separator)
}

type sequenceRepository interface {
	Increment(ctx context.Context, key models.SequenceKey, prefix string) (int64, error)
	Find(ctx context.Context, key models.SequenceKey) (*models.Sequence, error)
	Reset(ctx context.Context, key models.SequenceKey, startValue int64, prefix string) error
}

type schoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// SequenceConfigOverrides optionally tunes formatting for one call without
// touching the counter key.
type SequenceConfigOverrides struct {
	Prefix *string
	Width  *int
}

// SequenceService issues collision-free formatted identifiers backed by
// durable counters.
type SequenceService struct {
	repo          sequenceRepository
	schools       schoolReader
	logger        *zap.Logger
	metrics       *MetricsService
	maxBatchSize  int
	retryAttempts int
	retryBackoff  time.Duration
	now           func() time.Time
}

// SequenceServiceOptions tunes retry and batch behaviour.
type SequenceServiceOptions struct {
	MaxBatchSize  int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// NewSequenceService constructs the service.
func NewSequenceService(repo sequenceRepository, schools schoolReader, logger *zap.Logger, metrics *MetricsService, opts SequenceServiceOptions) *SequenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 1000
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 25 * time.Millisecond
	}
	return &SequenceService{
		repo:          repo,
		schools:       schools,
		logger:        logger,
		metrics:       metrics,
		maxBatchSize:  opts.MaxBatchSize,
		retryAttempts: opts.RetryAttempts,
		retryBackoff:  opts.RetryBackoff,
		now:           time.Now,
	}
}

// resolveSchool decides which school the counter belongs to. An explicit id
// must be within the caller's scope; otherwise the caller's own school is
// used. Superusers with no explicit school operate on the global region.
func (s *SequenceService) resolveSchool(scope tenancy.Scope, explicit string) (string, error) {
	if explicit != "" {
		if !scope.Allows(explicit) {
			return "", appErrors.Clone(appErrors.ErrAccessDenied, "sequence belongs to another school")
		}
		return explicit, nil
	}
	if schoolID, ok := scope.School(); ok {
		return schoolID, nil
	}
	if scope.Superuser {
		return "", nil
	}
	return "", appErrors.Clone(appErrors.ErrAccessDenied, "no school scope resolved for caller")
}

// keyFor builds the counter key. Annual-reset kinds fold the current year
// into the key so each year opens a fresh counter region; perpetual kinds
// use an empty period.
func (s *SequenceService) keyFor(kind models.NumberKind, cfg models.SequenceConfig, schoolID string) models.SequenceKey {
	key := models.SequenceKey{Kind: kind}
	if cfg.PerSchool {
		key.SchoolID = schoolID
	}
	if cfg.AnnualReset {
		key.Period = strconv.Itoa(s.now().UTC().Year())
	}
	return key
}

func (s *SequenceService) schoolCode(ctx context.Context, cfg models.SequenceConfig, schoolID string) (string, error) {
	if !cfg.IncludeSchoolCode || schoolID == "" {
		return "", nil
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school.Code, nil
}

func applyOverrides(cfg models.SequenceConfig, overrides *SequenceConfigOverrides) models.SequenceConfig {
	if overrides == nil {
		return cfg
	}
	if overrides.Prefix != nil && *overrides.Prefix != "" {
		cfg.Prefix = *overrides.Prefix
	}
	if overrides.Width != nil && *overrides.Width > 0 {
		cfg.Width = *overrides.Width
	}
	return cfg
}

// Next atomically claims the next counter value and returns the formatted
// identifier. Serialization conflicts are retried a bounded number of times;
// a retried call claims a fresh value, so a gap may appear but a value is
// never reused.
func (s *SequenceService) Next(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string, overrides *SequenceConfigOverrides) (string, error) {
	cfg, ok := ConfigForKind(kind)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown number kind %q", kind))
	}
	cfg = applyOverrides(cfg, overrides)

	resolved, err := s.resolveSchool(scope, schoolID)
	if err != nil {
		return "", err
	}
	code, err := s.schoolCode(ctx, cfg, resolved)
	if err != nil {
		return "", err
	}
	key := s.keyFor(kind, cfg, resolved)

	var value int64
	for attempt := 0; ; attempt++ {
		value, err = s.repo.Increment(ctx, key, cfg.Prefix)
		if err == nil {
			break
		}
		if !repository.IsRetryableConflict(err) {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to increment sequence")
		}
		if s.metrics != nil {
			s.metrics.RecordSequenceRetry()
		}
		if attempt+1 >= s.retryAttempts {
			s.logger.Warn("sequence increment exhausted retries",
				zap.String("kind", string(kind)),
				zap.String("school_id", resolved),
				zap.Int("attempts", attempt+1))
			return "", appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "sequence counter contended, retry the request")
		}
		select {
		case <-ctx.Done():
			return "", appErrors.Wrap(ctx.Err(), appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "sequence increment cancelled")
		case <-time.After(s.retryBackoff):
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSequenceIssued(kind)
	}
	return FormatNumber(cfg, value, s.now().UTC().Year(), code), nil
}

// Peek returns the identifier the next call would produce without mutating
// state. Advisory only: a concurrent caller may claim the value first.
func (s *SequenceService) Peek(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string) (string, error) {
	cfg, ok := ConfigForKind(kind)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown number kind %q", kind))
	}
	resolved, err := s.resolveSchool(scope, schoolID)
	if err != nil {
		return "", err
	}
	code, err := s.schoolCode(ctx, cfg, resolved)
	if err != nil {
		return "", err
	}

	next := int64(1)
	seq, err := s.repo.Find(ctx, s.keyFor(kind, cfg, resolved))
	if err != nil && err != sql.ErrNoRows {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sequence")
	}
	if seq != nil {
		next = seq.CurrentValue + 1
	}
	return FormatNumber(cfg, next, s.now().UTC().Year(), code), nil
}

// CurrentValue returns the raw counter value, or nil when the key has never
// been used.
func (s *SequenceService) CurrentValue(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string) (*int64, error) {
	cfg, ok := ConfigForKind(kind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown number kind %q", kind))
	}
	resolved, err := s.resolveSchool(scope, schoolID)
	if err != nil {
		return nil, err
	}
	seq, err := s.repo.Find(ctx, s.keyFor(kind, cfg, resolved))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sequence")
	}
	value := seq.CurrentValue
	return &value, nil
}

// Reset upserts the counter to an explicit value. Administrative override;
// the only way a value can ever be skipped or revisited, so it is logged.
func (s *SequenceService) Reset(ctx context.Context, kind models.NumberKind, startValue int64, scope tenancy.Scope, schoolID string) error {
	cfg, ok := ConfigForKind(kind)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown number kind %q", kind))
	}
	if startValue < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "start value must not be negative")
	}
	resolved, err := s.resolveSchool(scope, schoolID)
	if err != nil {
		return err
	}
	key := s.keyFor(kind, cfg, resolved)
	if err := s.repo.Reset(ctx, key, startValue, cfg.Prefix); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset sequence")
	}
	s.logger.Info("sequence reset",
		zap.String("kind", string(kind)),
		zap.String("school_id", resolved),
		zap.String("period", key.Period),
		zap.Int64("start_value", startValue))
	return nil
}

// Batch issues count identifiers by calling Next sequentially. Each issued
// identifier is independently durable: a failure partway leaves the earlier
// identifiers claimed, it does not roll them back.
func (s *SequenceService) Batch(ctx context.Context, kind models.NumberKind, count int, scope tenancy.Scope, schoolID string) ([]string, error) {
	if count < 1 || count > s.maxBatchSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch count must be between 1 and %d", s.maxBatchSize))
	}
	numbers := make([]string, 0, count)
	for i := 0; i < count; i++ {
		number, err := s.Next(ctx, kind, scope, schoolID, nil)
		if err != nil {
			return numbers, err
		}
		numbers = append(numbers, number)
	}
	return numbers, nil
}
