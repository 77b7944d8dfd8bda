// Package repository defines the persistence contracts shared by the
// MongoDB and in-memory backends. Services depend on these interfaces only.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/poultrypro/backend/internal/domain/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned by conditional counter writes
	// when another caller changed the batch between read and commit. The
	// operation was not applied; callers may re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint (one event per stream per batch per day, or a reused
	// idempotency key).
	ErrDuplicateKey = errors.New("duplicate key")
)

// BatchChange describes one observed mutation of a batch's counters,
// delivered by the store's live-subscription primitive. Nothing in the
// write path depends on it.
type BatchChange struct {
	BatchID      string
	OwnerID      string
	CurrentCount int
	InitialCount int
	At           time.Time
}

// BatchRepository persists batches and performs the two conditional counter
// writes. Both writes are compare-and-swap: they carry the counter values
// the caller observed, and fail with ErrConcurrentModification when the
// stored values no longer match.
type BatchRepository interface {
	Create(ctx context.Context, batch models.Batch) (models.Batch, error)
	Get(ctx context.Context, id string) (models.Batch, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Batch, error)
	DistinctOwners(ctx context.Context) ([]string, error)

	// ApplyMortality inserts the event and decrements the batch counter as
	// one transactional unit, conditional on the counter still being
	// prevCurrent.
	ApplyMortality(ctx context.Context, ev models.MortalityEvent, prevCurrent int) (models.MortalityEvent, models.Batch, error)

	// AdjustCounts sets both counters, conditional on the previously
	// observed pair.
	AdjustCounts(ctx context.Context, batchID string, prevCurrent, prevInitial, newCurrent, newInitial int) (models.Batch, error)

	// Watch emits counter changes until ctx is cancelled. Optional for
	// correctness; the audit adapter is its only consumer.
	Watch(ctx context.Context) (<-chan BatchChange, error)
}

// MortalityRepository reads the append-only mortality stream. There are no
// update or delete operations: corrections go through manual count
// adjustments on the batch.
type MortalityRepository interface {
	Get(ctx context.Context, id string) (models.MortalityEvent, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.MortalityEvent, error)
	FindByIdempotencyKey(ctx context.Context, batchID, key string) (models.MortalityEvent, error)
}

// FeedRepository persists feed events.
type FeedRepository interface {
	Insert(ctx context.Context, ev models.FeedEvent) (models.FeedEvent, error)
	Get(ctx context.Context, id string) (models.FeedEvent, error)
	Update(ctx context.Context, ev models.FeedEvent) (models.FeedEvent, error)
	Delete(ctx context.Context, id string) error
	ListByBatch(ctx context.Context, batchID string) ([]models.FeedEvent, error)
}

// EggRepository persists egg production events.
type EggRepository interface {
	Insert(ctx context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error)
	Get(ctx context.Context, id string) (models.EggProductionEvent, error)
	Update(ctx context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error)
	Delete(ctx context.Context, id string) error
	ListByBatch(ctx context.Context, batchID string) ([]models.EggProductionEvent, error)
}

// VaccinationRepository persists vaccination events and supports the
// reminder sweep.
type VaccinationRepository interface {
	Insert(ctx context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error)
	Get(ctx context.Context, id string) (models.VaccinationEvent, error)
	Update(ctx context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error)
	Delete(ctx context.Context, id string) error
	ListByBatch(ctx context.Context, batchID string) ([]models.VaccinationEvent, error)

	// ListPendingDue returns not-done vaccinations dated on or before dueBy
	// whose reminder count has not reached the cap.
	ListPendingDue(ctx context.Context, dueBy time.Time) ([]models.VaccinationEvent, error)

	// IncrementReminder bumps the reminder count by one, bounded by the
	// cap, and returns the new value.
	IncrementReminder(ctx context.Context, id string) (int, error)
}
