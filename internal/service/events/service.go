// Package events implements the dated record surface for the three
// editable streams (feed, egg production, vaccination). Mortality events
// mutate the batch counter and are owned by the ledger engine; here they
// are read-only, and edit or delete attempts on them are rejected.
package events

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

// Service validates and persists feed, egg production and vaccination
// records, always scoped to the acting owner.
type Service struct {
	batches      repository.BatchRepository
	feed         repository.FeedRepository
	eggs         repository.EggRepository
	vaccinations repository.VaccinationRepository
	lookup       validation.Lookup
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(
	batches repository.BatchRepository,
	feed repository.FeedRepository,
	eggs repository.EggRepository,
	vaccinations repository.VaccinationRepository,
	lookup validation.Lookup,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:      batches,
		feed:         feed,
		eggs:         eggs,
		vaccinations: vaccinations,
		lookup:       lookup,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FeedInput carries the user-editable fields of a feed record.
type FeedInput struct {
	Date     time.Time
	FeedType string
	Grams    int
	Price    float64
}

// EggInput carries the user-editable fields of an egg production record.
// Remaining is derived, never supplied.
type EggInput struct {
	Date   time.Time
	Total  int
	Broken int
}

// VaccinationInput carries the user-editable fields of a vaccination
// record. ReminderCount is maintained by the sweep and preserved on edit.
type VaccinationInput struct {
	Date  time.Time
	Type  string
	Price float64
	Done  bool
}

// CreateFeed validates and inserts a feed record.
func (s *Service) CreateFeed(ctx context.Context, actor auth.Actor, batchID string, in FeedInput) (models.FeedEvent, error) {
	batch, err := s.loadOwned(ctx, actor, batchID)
	if err != nil {
		return models.FeedEvent{}, err
	}
	if strings.TrimSpace(in.FeedType) == "" {
		return models.FeedEvent{}, fmt.Errorf("%w: feed type is required", validation.ErrInvalidQuantity)
	}
	if err := validation.FeedQuantities(in.Grams, in.Price); err != nil {
		return models.FeedEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindFeed, batch, in.Date, ""); err != nil {
		return models.FeedEvent{}, err
	}

	now := s.now().UTC()
	ev := models.FeedEvent{
		EventMeta: s.meta(batchID, in.Date, now),
		FeedType:  strings.TrimSpace(in.FeedType),
		Grams:     in.Grams,
		Price:     in.Price,
	}
	created, err := s.feed.Insert(ctx, ev)
	if err != nil {
		return models.FeedEvent{}, s.wrapStoreErr(models.KindFeed, ev.DateKey, err)
	}
	s.logger.Info("feed event created", zap.String("batch_id", batchID), zap.String("date", ev.DateKey))
	return created, nil
}

// UpdateFeed re-validates and replaces an existing feed record.
func (s *Service) UpdateFeed(ctx context.Context, actor auth.Actor, id string, in FeedInput) (models.FeedEvent, error) {
	existing, err := s.feed.Get(ctx, id)
	if err != nil {
		return models.FeedEvent{}, s.notFound(err)
	}
	batch, err := s.loadOwned(ctx, actor, existing.BatchID)
	if err != nil {
		return models.FeedEvent{}, err
	}
	if strings.TrimSpace(in.FeedType) == "" {
		return models.FeedEvent{}, fmt.Errorf("%w: feed type is required", validation.ErrInvalidQuantity)
	}
	if err := validation.FeedQuantities(in.Grams, in.Price); err != nil {
		return models.FeedEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindFeed, batch, in.Date, existing.ID); err != nil {
		return models.FeedEvent{}, err
	}

	existing.Date = models.Midnight(in.Date)
	existing.DateKey = models.DateKey(in.Date)
	existing.FeedType = strings.TrimSpace(in.FeedType)
	existing.Grams = in.Grams
	existing.Price = in.Price
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.feed.Update(ctx, existing)
	if err != nil {
		return models.FeedEvent{}, s.wrapStoreErr(models.KindFeed, existing.DateKey, err)
	}
	return updated, nil
}

// CreateEggProduction validates and inserts an egg production record.
func (s *Service) CreateEggProduction(ctx context.Context, actor auth.Actor, batchID string, in EggInput) (models.EggProductionEvent, error) {
	batch, err := s.loadOwned(ctx, actor, batchID)
	if err != nil {
		return models.EggProductionEvent{}, err
	}
	if err := validation.EggSplit(in.Total, in.Broken); err != nil {
		return models.EggProductionEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindEggProduction, batch, in.Date, ""); err != nil {
		return models.EggProductionEvent{}, err
	}

	now := s.now().UTC()
	ev := models.EggProductionEvent{
		EventMeta: s.meta(batchID, in.Date, now),
		Total:     in.Total,
		Broken:    in.Broken,
		Remaining: in.Total - in.Broken,
	}
	created, err := s.eggs.Insert(ctx, ev)
	if err != nil {
		return models.EggProductionEvent{}, s.wrapStoreErr(models.KindEggProduction, ev.DateKey, err)
	}
	s.logger.Info("egg production event created", zap.String("batch_id", batchID), zap.String("date", ev.DateKey))
	return created, nil
}

// UpdateEggProduction re-validates and replaces an existing record,
// recomputing the remaining count.
func (s *Service) UpdateEggProduction(ctx context.Context, actor auth.Actor, id string, in EggInput) (models.EggProductionEvent, error) {
	existing, err := s.eggs.Get(ctx, id)
	if err != nil {
		return models.EggProductionEvent{}, s.notFound(err)
	}
	batch, err := s.loadOwned(ctx, actor, existing.BatchID)
	if err != nil {
		return models.EggProductionEvent{}, err
	}
	if err := validation.EggSplit(in.Total, in.Broken); err != nil {
		return models.EggProductionEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindEggProduction, batch, in.Date, existing.ID); err != nil {
		return models.EggProductionEvent{}, err
	}

	existing.Date = models.Midnight(in.Date)
	existing.DateKey = models.DateKey(in.Date)
	existing.Total = in.Total
	existing.Broken = in.Broken
	existing.Remaining = in.Total - in.Broken
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.eggs.Update(ctx, existing)
	if err != nil {
		return models.EggProductionEvent{}, s.wrapStoreErr(models.KindEggProduction, existing.DateKey, err)
	}
	return updated, nil
}

// CreateVaccination validates and inserts a vaccination record with a
// fresh reminder count.
func (s *Service) CreateVaccination(ctx context.Context, actor auth.Actor, batchID string, in VaccinationInput) (models.VaccinationEvent, error) {
	batch, err := s.loadOwned(ctx, actor, batchID)
	if err != nil {
		return models.VaccinationEvent{}, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return models.VaccinationEvent{}, fmt.Errorf("%w: vaccination type is required", validation.ErrInvalidQuantity)
	}
	if err := validation.VaccinationPrice(in.Price); err != nil {
		return models.VaccinationEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindVaccination, batch, in.Date, ""); err != nil {
		return models.VaccinationEvent{}, err
	}

	now := s.now().UTC()
	ev := models.VaccinationEvent{
		EventMeta:     s.meta(batchID, in.Date, now),
		Type:          strings.TrimSpace(in.Type),
		Price:         in.Price,
		Done:          in.Done,
		ReminderCount: 0,
	}
	created, err := s.vaccinations.Insert(ctx, ev)
	if err != nil {
		return models.VaccinationEvent{}, s.wrapStoreErr(models.KindVaccination, ev.DateKey, err)
	}
	s.logger.Info("vaccination event created", zap.String("batch_id", batchID), zap.String("date", ev.DateKey))
	return created, nil
}

// UpdateVaccination re-validates and replaces an existing record. The
// reminder count is preserved; only the sweep moves it.
func (s *Service) UpdateVaccination(ctx context.Context, actor auth.Actor, id string, in VaccinationInput) (models.VaccinationEvent, error) {
	existing, err := s.vaccinations.Get(ctx, id)
	if err != nil {
		return models.VaccinationEvent{}, s.notFound(err)
	}
	batch, err := s.loadOwned(ctx, actor, existing.BatchID)
	if err != nil {
		return models.VaccinationEvent{}, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return models.VaccinationEvent{}, fmt.Errorf("%w: vaccination type is required", validation.ErrInvalidQuantity)
	}
	if err := validation.VaccinationPrice(in.Price); err != nil {
		return models.VaccinationEvent{}, err
	}
	if err := s.checkDate(ctx, models.KindVaccination, batch, in.Date, existing.ID); err != nil {
		return models.VaccinationEvent{}, err
	}

	existing.Date = models.Midnight(in.Date)
	existing.DateKey = models.DateKey(in.Date)
	existing.Type = strings.TrimSpace(in.Type)
	existing.Price = in.Price
	existing.Done = in.Done
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.vaccinations.Update(ctx, existing)
	if err != nil {
		return models.VaccinationEvent{}, s.wrapStoreErr(models.KindVaccination, existing.DateKey, err)
	}
	return updated, nil
}

// Delete removes a feed, egg production or vaccination record. Mortality
// records are an append-only audit trail and cannot be deleted; the
// correction path for population counters is a manual count adjustment.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, kind models.EventKind, id string) error {
	switch kind {
	case models.KindMortality:
		return validation.ErrImmutableEvent
	case models.KindFeed:
		ev, err := s.feed.Get(ctx, id)
		if err != nil {
			return s.notFound(err)
		}
		if _, err := s.loadOwned(ctx, actor, ev.BatchID); err != nil {
			return err
		}
		return s.feed.Delete(ctx, id)
	case models.KindEggProduction:
		ev, err := s.eggs.Get(ctx, id)
		if err != nil {
			return s.notFound(err)
		}
		if _, err := s.loadOwned(ctx, actor, ev.BatchID); err != nil {
			return err
		}
		return s.eggs.Delete(ctx, id)
	case models.KindVaccination:
		ev, err := s.vaccinations.Get(ctx, id)
		if err != nil {
			return s.notFound(err)
		}
		if _, err := s.loadOwned(ctx, actor, ev.BatchID); err != nil {
			return err
		}
		return s.vaccinations.Delete(ctx, id)
	default:
		return fmt.Errorf("unknown event kind %q", kind)
	}
}

// ListFeed returns the batch's feed records, oldest first.
func (s *Service) ListFeed(ctx context.Context, actor auth.Actor, batchID string) ([]models.FeedEvent, error) {
	if _, err := s.loadOwned(ctx, actor, batchID); err != nil {
		return nil, err
	}
	return s.feed.ListByBatch(ctx, batchID)
}

// ListEggProduction returns the batch's egg production records, oldest first.
func (s *Service) ListEggProduction(ctx context.Context, actor auth.Actor, batchID string) ([]models.EggProductionEvent, error) {
	if _, err := s.loadOwned(ctx, actor, batchID); err != nil {
		return nil, err
	}
	return s.eggs.ListByBatch(ctx, batchID)
}

// ListVaccinations returns the batch's vaccination records, oldest first.
func (s *Service) ListVaccinations(ctx context.Context, actor auth.Actor, batchID string) ([]models.VaccinationEvent, error) {
	if _, err := s.loadOwned(ctx, actor, batchID); err != nil {
		return nil, err
	}
	return s.vaccinations.ListByBatch(ctx, batchID)
}

func (s *Service) meta(batchID string, date time.Time, now time.Time) models.EventMeta {
	return models.EventMeta{
		BatchID:   batchID,
		Date:      models.Midnight(date),
		DateKey:   models.DateKey(date),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) checkDate(ctx context.Context, kind models.EventKind, batch models.Batch, date time.Time, excludingID string) error {
	if err := validation.EventDate(date, batch.PlacementDate, s.now()); err != nil {
		return err
	}
	return validation.Uniqueness(ctx, s.lookup, kind, batch.ID, date, excludingID)
}

// wrapStoreErr translates a store duplicate-key failure into the
// user-facing duplicate-date error. The unique index is the last line of
// defense behind the validation lookup.
func (s *Service) wrapStoreErr(kind models.EventKind, dateKey string, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return fmt.Errorf("%w: %s %s", validation.ErrDuplicateDate, kind, dateKey)
	}
	return err
}

func (s *Service) notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	return err
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
