package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/config"
	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository/memory"
)

func newSweepScheduler(t *testing.T, store *memory.Store) *Scheduler {
	t.Helper()
	s, err := NewScheduler(config.SchedulerConfig{
		ReminderCron:       "0 8 * * *",
		ExportCron:         "0 20 * * 5",
		Timezone:           "UTC",
		ReminderWindowDays: 7,
	}, store.Batches(), store.Vaccinations(), nil, nil, nil)
	require.NoError(t, err)
	return s
}

func insertVaccination(t *testing.T, store *memory.Store, on time.Time) models.VaccinationEvent {
	t.Helper()
	ev, err := store.Vaccinations().Insert(context.Background(), models.VaccinationEvent{
		EventMeta: models.EventMeta{
			BatchID:   "batch-1",
			Date:      on,
			DateKey:   models.DateKey(on),
			CreatedAt: on,
			UpdatedAt: on,
		},
		Type: "Newcastle",
	})
	require.NoError(t, err)
	return ev
}

func TestSweepVaccinationReminders_CapsPerRecord(t *testing.T) {
	store := memory.New()
	sched := newSweepScheduler(t, store)
	ctx := context.Background()

	due := insertVaccination(t, store, time.Now().UTC().AddDate(0, 0, 2))

	// Run the sweep well past the cap: the count must saturate and the
	// record must drop out of the pending set.
	for i := 0; i < models.MaxVaccinationReminders+3; i++ {
		sched.sweepVaccinationReminders()
	}

	stored, err := store.Vaccinations().Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaxVaccinationReminders, stored.ReminderCount)

	pending, err := store.Vaccinations().ListPendingDue(ctx, time.Now().UTC().AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, pending, "capped records generate no further reminders")
}

func TestSweepVaccinationReminders_WindowOnly(t *testing.T) {
	store := memory.New()
	sched := newSweepScheduler(t, store)
	ctx := context.Background()

	inWindow := insertVaccination(t, store, time.Now().UTC().AddDate(0, 0, 3))
	farOut := insertVaccination(t, store, time.Now().UTC().AddDate(0, 0, 30))

	sched.sweepVaccinationReminders()

	near, err := store.Vaccinations().Get(ctx, inWindow.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, near.ReminderCount)

	far, err := store.Vaccinations().Get(ctx, farOut.ID)
	require.NoError(t, err)
	assert.Zero(t, far.ReminderCount, "not yet inside the reminder window")
}
