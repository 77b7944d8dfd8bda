// Package ledger owns the batch lifecycle and the two counter mutation
// paths: applying mortality events and manual undercount corrections.
// Every write goes through a conditional store update keyed on the counter
// values observed at read time, so two sessions racing on the same batch
// cannot silently lose an update.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/auth"
	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
	"github.com/poultrypro/backend/internal/repository"
)

// Service is the persisting side of the ledger engine.
type Service struct {
	batches   repository.BatchRepository
	mortality repository.MortalityRepository
	lookup    validation.Lookup
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(batches repository.BatchRepository, mortality repository.MortalityRepository, lookup validation.Lookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:   batches,
		mortality: mortality,
		lookup:    lookup,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput carries the fields needed to register a new batch.
type RegisterInput struct {
	Name          string
	Type          string
	Breed         string
	InitialCount  int
	Price         float64
	PlacementDate time.Time
	HealthStatus  models.HealthStatus
}

// Register creates a batch with both counters set to the initial count.
func (s *Service) Register(ctx context.Context, actor auth.Actor, in RegisterInput) (models.Batch, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Batch{}, fmt.Errorf("%w: batch name is required", validation.ErrInvalidQuantity)
	}
	if in.InitialCount < 0 {
		return models.Batch{}, fmt.Errorf("%w: initial count must not be negative", validation.ErrInvalidQuantity)
	}
	if in.Price < 0 {
		return models.Batch{}, fmt.Errorf("%w: price must not be negative", validation.ErrInvalidQuantity)
	}

	now := s.now().UTC()
	status := in.HealthStatus
	if status == "" {
		status = models.HealthHealthy
	}

	batch := models.Batch{
		OwnerID:       actor.OwnerID,
		Name:          strings.TrimSpace(in.Name),
		Type:          in.Type,
		Breed:         in.Breed,
		InitialCount:  in.InitialCount,
		CurrentCount:  in.InitialCount,
		Price:         in.Price,
		PlacementDate: models.Midnight(in.PlacementDate),
		HealthStatus:  status,
		LastUpdate:    now,
		CreatedAt:     now,
	}

	created, err := s.batches.Create(ctx, batch)
	if err != nil {
		return models.Batch{}, fmt.Errorf("register batch: %w", err)
	}

	s.logger.Info("batch registered",
		zap.String("batch_id", created.ID),
		zap.String("owner_id", actor.OwnerID),
		zap.Int("initial_count", created.InitialCount))
	return created, nil
}

// Get returns a batch after verifying ownership.
func (s *Service) Get(ctx context.Context, actor auth.Actor, batchID string) (models.Batch, error) {
	return s.loadOwned(ctx, actor, batchID)
}

// List returns the actor's batches.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]models.Batch, error) {
	batches, err := s.batches.ListByOwner(ctx, actor.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// ApplyMortalityInput describes one mortality apply request.
type ApplyMortalityInput struct {
	BatchID string
	Date    time.Time
	Deaths  int
	Cause   string
	// IdempotencyKey is a client-generated token. Replaying an apply with
	// the same key returns the already-committed event without touching
	// the counter again.
	IdempotencyKey string
}

// ApplyMortality validates, computes and commits one mortality event and
// its counter decrement as a single transactional unit.
func (s *Service) ApplyMortality(ctx context.Context, actor auth.Actor, in ApplyMortalityInput) (models.MortalityEvent, models.Batch, error) {
	batch, err := s.loadOwned(ctx, actor, in.BatchID)
	if err != nil {
		return models.MortalityEvent{}, models.Batch{}, err
	}

	if in.IdempotencyKey != "" {
		existing, err := s.mortality.FindByIdempotencyKey(ctx, batch.ID, in.IdempotencyKey)
		if err == nil {
			s.logger.Info("mortality apply replayed",
				zap.String("batch_id", batch.ID),
				zap.String("idempotency_key", in.IdempotencyKey))
			return existing, batch, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return models.MortalityEvent{}, models.Batch{}, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	if err := validation.EventDate(in.Date, batch.PlacementDate, s.now()); err != nil {
		return models.MortalityEvent{}, models.Batch{}, err
	}
	if err := validation.Uniqueness(ctx, s.lookup, models.KindMortality, batch.ID, in.Date, ""); err != nil {
		return models.MortalityEvent{}, models.Batch{}, err
	}

	_, ev, err := ApplyMortality(batch, in.Deaths, in.Cause, in.Date, s.now().UTC())
	if err != nil {
		return models.MortalityEvent{}, models.Batch{}, err
	}
	ev.IdempotencyKey = in.IdempotencyKey

	committedEv, committedBatch, err := s.batches.ApplyMortality(ctx, ev, batch.CurrentCount)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// The unique index that fired may be the idempotency one: a
			// concurrent apply with the same key can commit between our
			// replay lookup and this write. Re-check before reporting a
			// duplicate date.
			if in.IdempotencyKey != "" {
				if existing, lookupErr := s.mortality.FindByIdempotencyKey(ctx, batch.ID, in.IdempotencyKey); lookupErr == nil {
					current, loadErr := s.batches.Get(ctx, batch.ID)
					if loadErr != nil {
						return models.MortalityEvent{}, models.Batch{}, fmt.Errorf("reload batch after replay: %w", loadErr)
					}
					s.logger.Info("mortality apply replayed",
						zap.String("batch_id", batch.ID),
						zap.String("idempotency_key", in.IdempotencyKey))
					return existing, current, nil
				}
			}
			return models.MortalityEvent{}, models.Batch{}, fmt.Errorf("%w: %s %s",
				validation.ErrDuplicateDate, models.KindMortality, ev.DateKey)
		}
		return models.MortalityEvent{}, models.Batch{}, fmt.Errorf("commit mortality event: %w", err)
	}

	s.logger.Info("mortality applied",
		zap.String("batch_id", batch.ID),
		zap.Int("deaths", in.Deaths),
		zap.Int("remaining", committedBatch.CurrentCount))
	return committedEv, committedBatch, nil
}

// AdjustCount corrects an undercount on the batch. Decreases fail with
// ErrDecreaseNotAllowed.
func (s *Service) AdjustCount(ctx context.Context, actor auth.Actor, batchID string, newCurrent int) (models.Batch, error) {
	batch, err := s.loadOwned(ctx, actor, batchID)
	if err != nil {
		return models.Batch{}, err
	}

	updated, delta, err := AdjustCount(batch, newCurrent, s.now().UTC())
	if err != nil {
		return models.Batch{}, err
	}
	if delta == 0 {
		return batch, nil
	}

	committed, err := s.batches.AdjustCounts(ctx, batch.ID,
		batch.CurrentCount, batch.InitialCount,
		updated.CurrentCount, updated.InitialCount)
	if err != nil {
		return models.Batch{}, fmt.Errorf("commit count adjustment: %w", err)
	}

	s.logger.Info("batch count adjusted",
		zap.String("batch_id", batch.ID),
		zap.Int("delta", delta),
		zap.Int("current_count", committed.CurrentCount))
	return committed, nil
}

// ListMortality returns the batch's mortality stream, oldest first.
func (s *Service) ListMortality(ctx context.Context, actor auth.Actor, batchID string) ([]models.MortalityEvent, error) {
	if _, err := s.loadOwned(ctx, actor, batchID); err != nil {
		return nil, err
	}
	return s.mortality.ListByBatch(ctx, batchID)
}

func (s *Service) loadOwned(ctx context.Context, actor auth.Actor, batchID string) (models.Batch, error) {
	batch, err := s.batches.Get(ctx, batchID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Batch{}, validation.ErrBatchNotFound
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	if batch.OwnerID != actor.OwnerID {
		return models.Batch{}, validation.ErrNotOwner
	}
	return batch, nil
}
