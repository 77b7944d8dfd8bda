package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/auth"
	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
	"github.com/poultrypro/backend/internal/repository/memory"
	"github.com/poultrypro/backend/internal/service/events"
	"github.com/poultrypro/backend/internal/service/ledger"
)

var owner = auth.Actor{OwnerID: "owner-1"}

// The clock is pinned to 2025-03-10; records date from there since
// backdating is rejected.
func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) (*events.Service, *memory.Store, models.Batch) {
	t.Helper()
	store := memory.New()
	svc := events.NewService(store.Batches(), store.Feed(), store.Eggs(), store.Vaccinations(), store, nil).
		WithClock(fixedNow)

	reg := ledger.NewService(store.Batches(), store.Mortality(), store, nil).WithClock(fixedNow)
	batch, err := reg.Register(context.Background(), owner, ledger.RegisterInput{
		Name:          "Layers A",
		Type:          "Layer",
		InitialCount:  100,
		Price:         50,
		PlacementDate: day(1),
	})
	require.NoError(t, err)
	return svc, store, batch
}

func TestCreateFeed_Validations(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	_, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "", Grams: 100, Price: 2,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity, "blank feed type")

	_, err = svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: -1, Price: 2,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity, "negative grams")

	ev, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", ev.DateKey)
}

func TestCreateFeed_DuplicateDay(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	_, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)

	_, err = svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "grower", Grams: 200, Price: 3,
	})
	assert.ErrorIs(t, err, validation.ErrDuplicateDate)
}

func TestUpdateFeed_SameDayAllowed(t *testing.T) {
	// Editing a record without moving its date must not trip the one
	// record per day rule against itself.
	svc, _, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateFeed(ctx, owner, ev.ID, events.FeedInput{
		Date: day(10), FeedType: "grower", Grams: 150, Price: 2.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "grower", updated.FeedType)
	assert.Equal(t, 150, updated.Grams)
}

func TestUpdateFeed_MoveOntoOccupiedDayRejected(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	_, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)
	second, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(11), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)

	_, err = svc.UpdateFeed(ctx, owner, second.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	assert.ErrorIs(t, err, validation.ErrDuplicateDate)
}

func TestCreateEggProduction_DerivesRemaining(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateEggProduction(ctx, owner, batch.ID, events.EggInput{
		Date: day(10), Total: 80, Broken: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, ev.Remaining)

	_, err = svc.CreateEggProduction(ctx, owner, batch.ID, events.EggInput{
		Date: day(11), Total: 10, Broken: 11,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity, "broken exceeding total")
}

func TestUpdateEggProduction_RecomputesRemaining(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateEggProduction(ctx, owner, batch.ID, events.EggInput{
		Date: day(10), Total: 80, Broken: 5,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateEggProduction(ctx, owner, ev.ID, events.EggInput{
		Date: day(10), Total: 90, Broken: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Remaining)
}

func TestVaccinationEdit_PreservesReminderCount(t *testing.T) {
	svc, store, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateVaccination(ctx, owner, batch.ID, events.VaccinationInput{
		Date: day(12), Type: "Newcastle", Price: 10, Done: false,
	})
	require.NoError(t, err)
	assert.Zero(t, ev.ReminderCount)

	// Sweep bumps the reminder counter out of band.
	_, err = store.Vaccinations().IncrementReminder(ctx, ev.ID)
	require.NoError(t, err)
	_, err = store.Vaccinations().IncrementReminder(ctx, ev.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateVaccination(ctx, owner, ev.ID, events.VaccinationInput{
		Date: day(12), Type: "Newcastle", Price: 12, Done: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ReminderCount)
	assert.True(t, updated.Done)
}

func TestDelete_MortalityRejected(t *testing.T) {
	svc, _, _ := setup(t)

	err := svc.Delete(context.Background(), owner, models.KindMortality, "any-id")
	assert.ErrorIs(t, err, validation.ErrImmutableEvent)
}

func TestDelete_EditableStreams(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, models.KindFeed, ev.ID))

	// The day is free again after the delete.
	_, err = svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	assert.NoError(t, err)
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	ev, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(10), FeedType: "starter", Grams: 100, Price: 2,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, auth.Actor{OwnerID: "owner-2"}, models.KindFeed, ev.ID)
	assert.ErrorIs(t, err, validation.ErrNotOwner)
}

func TestCreate_DateBounds(t *testing.T) {
	svc, _, batch := setup(t)
	ctx := context.Background()

	// Backdated records are rejected; future-dated ones (a scheduled
	// vaccination) are fine.
	_, err := svc.CreateFeed(ctx, owner, batch.ID, events.FeedInput{
		Date: day(9), FeedType: "starter", Grams: 100, Price: 2,
	})
	assert.ErrorIs(t, err, validation.ErrDateOutOfRange, "backdated")

	_, err = svc.CreateVaccination(ctx, owner, batch.ID, events.VaccinationInput{
		Date: day(20), Type: "Newcastle", Price: 10,
	})
	assert.NoError(t, err, "future date")
}

func TestCreate_BeforePlacementRejected(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()

	// A batch placed in the future: a record dated today is still before
	// placement and must be rejected.
	future, err := store.Batches().Create(ctx, models.Batch{
		OwnerID:       owner.OwnerID,
		Name:          "Incoming",
		InitialCount:  50,
		CurrentCount:  50,
		PlacementDate: day(15),
		CreatedAt:     fixedNow(),
	})
	require.NoError(t, err)

	_, err = svc.CreateFeed(ctx, owner, future.ID, events.FeedInput{
		Date: day(12), FeedType: "starter", Grams: 100, Price: 2,
	})
	assert.ErrorIs(t, err, validation.ErrDateOutOfRange)
}
