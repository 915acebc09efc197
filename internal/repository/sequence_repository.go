package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shulecore/academic-api/internal/models"
)

// Postgres error codes that indicate a transaction lost a race and is safe
// to retry.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// SequenceRepository persists the durable counter rows behind the number
// registry. Counter state is never held in process; every increment is a
// single atomic upsert inside a serializable transaction so that two
// concurrent callers can never claim the same value.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Increment claims the next value for the key, creating the counter at 1 on
// first use. The read-or-create, increment and persist happen in one
// statement; there is no window in which another caller can observe the same
// current_value.
func (r *SequenceRepository) Increment(ctx context.Context, key models.SequenceKey, prefix string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("begin sequence increment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO sequences (id, kind, school_id, period, current_value, prefix, last_generated_at)
VALUES ($1, $2, $3, $4, 1, $5, $6)
ON CONFLICT (kind, school_id, period)
DO UPDATE SET current_value = sequences.current_value + 1, last_generated_at = EXCLUDED.last_generated_at
RETURNING current_value`

	var value int64
	if err = tx.GetContext(ctx, &value, query, uuid.NewString(), key.Kind, key.SchoolID, key.Period, prefix, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key.Kind, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sequence increment: %w", err)
	}
	return value, nil
}

// Find returns the counter row for the key, or sql.ErrNoRows when the key
// has never been used.
func (r *SequenceRepository) Find(ctx context.Context, key models.SequenceKey) (*models.Sequence, error) {
	const query = `SELECT id, kind, school_id, period, current_value, prefix, last_generated_at
FROM sequences WHERE kind = $1 AND school_id = $2 AND period = $3`
	var seq models.Sequence
	if err := r.db.GetContext(ctx, &seq, query, key.Kind, key.SchoolID, key.Period); err != nil {
		return nil, err
	}
	return &seq, nil
}

// Reset upserts the counter to an explicit value. Administrative use only.
func (r *SequenceRepository) Reset(ctx context.Context, key models.SequenceKey, startValue int64, prefix string) error {
	const query = `INSERT INTO sequences (id, kind, school_id, period, current_value, prefix, last_generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (kind, school_id, period)
DO UPDATE SET current_value = EXCLUDED.current_value, last_generated_at = EXCLUDED.last_generated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), key.Kind, key.SchoolID, key.Period, startValue, prefix, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset sequence %s: %w", key.Kind, err)
	}
	return nil
}

// IsRetryableConflict reports whether the error is a serialization failure
// or deadlock a caller may safely retry. A retried increment claims a fresh
// value; it never reuses the failed attempt's value.
func IsRetryableConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgSerializationFailure || string(pqErr.Code) == pgDeadlockDetected
	}
	return false
}
