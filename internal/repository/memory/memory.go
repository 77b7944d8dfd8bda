// Package memory provides an in-memory implementation of the repository
// contracts. It backs tests and local development; the conditional-write
// and uniqueness semantics match the MongoDB backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
)

// Store holds every collection behind one mutex. All returned records are
// copies; callers never share memory with the store.
type Store struct {
	mu           sync.RWMutex
	batches      map[string]models.Batch
	feed         map[string]models.FeedEvent
	mortality    map[string]models.MortalityEvent
	eggs         map[string]models.EggProductionEvent
	vaccinations map[string]models.VaccinationEvent

	watchers []chan repository.BatchChange
}

func New() *Store {
	return &Store{
		batches:      make(map[string]models.Batch),
		feed:         make(map[string]models.FeedEvent),
		mortality:    make(map[string]models.MortalityEvent),
		eggs:         make(map[string]models.EggProductionEvent),
		vaccinations: make(map[string]models.VaccinationEvent),
	}
}

// Batches returns the batch repository view of the store.
func (s *Store) Batches() repository.BatchRepository { return (*batchRepo)(s) }

// Feed returns the feed event repository view of the store.
func (s *Store) Feed() repository.FeedRepository { return (*feedRepo)(s) }

// Mortality returns the mortality event repository view of the store.
func (s *Store) Mortality() repository.MortalityRepository { return (*mortalityRepo)(s) }

// Eggs returns the egg production repository view of the store.
func (s *Store) Eggs() repository.EggRepository { return (*eggRepo)(s) }

// Vaccinations returns the vaccination repository view of the store.
func (s *Store) Vaccinations() repository.VaccinationRepository { return (*vaccinationRepo)(s) }

// ExistsOnDate implements validation.Lookup across all four event streams.
func (s *Store) ExistsOnDate(_ context.Context, kind models.EventKind, batchID, dateKey, excludingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case models.KindFeed:
		for _, ev := range s.feed {
			if ev.BatchID == batchID && ev.DateKey == dateKey && ev.ID != excludingID {
				return true, nil
			}
		}
	case models.KindMortality:
		for _, ev := range s.mortality {
			if ev.BatchID == batchID && ev.DateKey == dateKey && ev.ID != excludingID {
				return true, nil
			}
		}
	case models.KindEggProduction:
		for _, ev := range s.eggs {
			if ev.BatchID == batchID && ev.DateKey == dateKey && ev.ID != excludingID {
				return true, nil
			}
		}
	case models.KindVaccination:
		for _, ev := range s.vaccinations {
			if ev.BatchID == batchID && ev.DateKey == dateKey && ev.ID != excludingID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) notifyLocked(b models.Batch) {
	change := repository.BatchChange{
		BatchID:      b.ID,
		OwnerID:      b.OwnerID,
		CurrentCount: b.CurrentCount,
		InitialCount: b.InitialCount,
		At:           time.Now(),
	}
	for _, ch := range s.watchers {
		select {
		case ch <- change:
		default: // slow watcher, drop
		}
	}
}

func newID() string { return uuid.NewString() }

// ---- batches ----

type batchRepo Store

func (r *batchRepo) Create(_ context.Context, batch models.Batch) (models.Batch, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ID == "" {
		batch.ID = newID()
	}
	s.batches[batch.ID] = batch
	return batch, nil
}

func (r *batchRepo) Get(_ context.Context, id string) (models.Batch, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return models.Batch{}, repository.ErrNotFound
	}
	return b, nil
}

func (r *batchRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Batch, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Batch
	for _, b := range s.batches {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *batchRepo) DistinctOwners(_ context.Context) ([]string, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var owners []string
	for _, b := range s.batches {
		if !seen[b.OwnerID] {
			seen[b.OwnerID] = true
			owners = append(owners, b.OwnerID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (r *batchRepo) ApplyMortality(_ context.Context, ev models.MortalityEvent, prevCurrent int) (models.MortalityEvent, models.Batch, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[ev.BatchID]
	if !ok {
		return models.MortalityEvent{}, models.Batch{}, repository.ErrNotFound
	}
	if b.CurrentCount != prevCurrent {
		return models.MortalityEvent{}, models.Batch{}, repository.ErrConcurrentModification
	}
	for _, existing := range s.mortality {
		if existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.MortalityEvent{}, models.Batch{}, repository.ErrDuplicateKey
		}
		if ev.IdempotencyKey != "" && existing.BatchID == ev.BatchID && existing.IdempotencyKey == ev.IdempotencyKey {
			return models.MortalityEvent{}, models.Batch{}, repository.ErrDuplicateKey
		}
	}

	if ev.ID == "" {
		ev.ID = newID()
	}
	s.mortality[ev.ID] = ev

	b.CurrentCount = ev.RemainingAfter
	b.LastUpdate = ev.UpdatedAt
	s.batches[b.ID] = b
	s.notifyLocked(b)
	return ev, b, nil
}

func (r *batchRepo) AdjustCounts(_ context.Context, batchID string, prevCurrent, prevInitial, newCurrent, newInitial int) (models.Batch, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return models.Batch{}, repository.ErrNotFound
	}
	if b.CurrentCount != prevCurrent || b.InitialCount != prevInitial {
		return models.Batch{}, repository.ErrConcurrentModification
	}

	b.CurrentCount = newCurrent
	b.InitialCount = newInitial
	b.LastUpdate = time.Now()
	s.batches[batchID] = b
	s.notifyLocked(b)
	return b, nil
}

func (r *batchRepo) Watch(ctx context.Context) (<-chan repository.BatchChange, error) {
	s := (*Store)(r)
	ch := make(chan repository.BatchChange, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// ---- mortality (read-only stream) ----

type mortalityRepo Store

func (r *mortalityRepo) Get(_ context.Context, id string) (models.MortalityEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.mortality[id]
	if !ok {
		return models.MortalityEvent{}, repository.ErrNotFound
	}
	return ev, nil
}

func (r *mortalityRepo) ListByBatch(_ context.Context, batchID string) ([]models.MortalityEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.MortalityEvent
	for _, ev := range s.mortality {
		if ev.BatchID == batchID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *mortalityRepo) FindByIdempotencyKey(_ context.Context, batchID, key string) (models.MortalityEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ev := range s.mortality {
		if ev.BatchID == batchID && ev.IdempotencyKey == key {
			return ev, nil
		}
	}
	return models.MortalityEvent{}, repository.ErrNotFound
}

// ---- feed ----

type feedRepo Store

func (r *feedRepo) Insert(_ context.Context, ev models.FeedEvent) (models.FeedEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.feed {
		if existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.FeedEvent{}, repository.ErrDuplicateKey
		}
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	s.feed[ev.ID] = ev
	return ev, nil
}

func (r *feedRepo) Get(_ context.Context, id string) (models.FeedEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.feed[id]
	if !ok {
		return models.FeedEvent{}, repository.ErrNotFound
	}
	return ev, nil
}

func (r *feedRepo) Update(_ context.Context, ev models.FeedEvent) (models.FeedEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feed[ev.ID]; !ok {
		return models.FeedEvent{}, repository.ErrNotFound
	}
	for _, existing := range s.feed {
		if existing.ID != ev.ID && existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.FeedEvent{}, repository.ErrDuplicateKey
		}
	}
	s.feed[ev.ID] = ev
	return ev, nil
}

func (r *feedRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feed[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.feed, id)
	return nil
}

func (r *feedRepo) ListByBatch(_ context.Context, batchID string) ([]models.FeedEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FeedEvent
	for _, ev := range s.feed {
		if ev.BatchID == batchID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ---- egg production ----

type eggRepo Store

func (r *eggRepo) Insert(_ context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.eggs {
		if existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.EggProductionEvent{}, repository.ErrDuplicateKey
		}
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	s.eggs[ev.ID] = ev
	return ev, nil
}

func (r *eggRepo) Get(_ context.Context, id string) (models.EggProductionEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.eggs[id]
	if !ok {
		return models.EggProductionEvent{}, repository.ErrNotFound
	}
	return ev, nil
}

func (r *eggRepo) Update(_ context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eggs[ev.ID]; !ok {
		return models.EggProductionEvent{}, repository.ErrNotFound
	}
	for _, existing := range s.eggs {
		if existing.ID != ev.ID && existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.EggProductionEvent{}, repository.ErrDuplicateKey
		}
	}
	s.eggs[ev.ID] = ev
	return ev, nil
}

func (r *eggRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eggs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.eggs, id)
	return nil
}

func (r *eggRepo) ListByBatch(_ context.Context, batchID string) ([]models.EggProductionEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.EggProductionEvent
	for _, ev := range s.eggs {
		if ev.BatchID == batchID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ---- vaccination ----

type vaccinationRepo Store

func (r *vaccinationRepo) Insert(_ context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.vaccinations {
		if existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.VaccinationEvent{}, repository.ErrDuplicateKey
		}
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	s.vaccinations[ev.ID] = ev
	return ev, nil
}

func (r *vaccinationRepo) Get(_ context.Context, id string) (models.VaccinationEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.vaccinations[id]
	if !ok {
		return models.VaccinationEvent{}, repository.ErrNotFound
	}
	return ev, nil
}

func (r *vaccinationRepo) Update(_ context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vaccinations[ev.ID]; !ok {
		return models.VaccinationEvent{}, repository.ErrNotFound
	}
	for _, existing := range s.vaccinations {
		if existing.ID != ev.ID && existing.BatchID == ev.BatchID && existing.DateKey == ev.DateKey {
			return models.VaccinationEvent{}, repository.ErrDuplicateKey
		}
	}
	s.vaccinations[ev.ID] = ev
	return ev, nil
}

func (r *vaccinationRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vaccinations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.vaccinations, id)
	return nil
}

func (r *vaccinationRepo) ListByBatch(_ context.Context, batchID string) ([]models.VaccinationEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VaccinationEvent
	for _, ev := range s.vaccinations {
		if ev.BatchID == batchID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *vaccinationRepo) ListPendingDue(_ context.Context, dueBy time.Time) ([]models.VaccinationEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VaccinationEvent
	for _, ev := range s.vaccinations {
		if !ev.Done && ev.ReminderCount < models.MaxVaccinationReminders && !ev.Date.After(dueBy) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *vaccinationRepo) IncrementReminder(_ context.Context, id string) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.vaccinations[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if ev.ReminderCount < models.MaxVaccinationReminders {
		ev.ReminderCount++
		ev.UpdatedAt = time.Now()
		s.vaccinations[id] = ev
	}
	return ev.ReminderCount, nil
}
