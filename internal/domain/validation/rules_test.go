package validation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEventDate(t *testing.T) {
	placement := day(2025, time.March, 1)
	today := day(2025, time.March, 10)

	tests := []struct {
		name    string
		date    time.Time
		wantErr error
	}{
		{"today is allowed", today, nil},
		{"future is allowed", day(2025, time.March, 15), nil},
		{"yesterday is rejected", day(2025, time.March, 9), validation.ErrDateOutOfRange},
		{"before placement is rejected", day(2025, time.February, 20), validation.ErrDateOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.EventDate(tt.date, placement, today)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEventDate_TimeOfDayIgnored(t *testing.T) {
	// A date earlier in the day than "now" is still the same calendar day.
	now := time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)
	date := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, validation.EventDate(date, day(2025, time.March, 1), now))
}

func TestMortalityQuantity(t *testing.T) {
	assert.NoError(t, validation.MortalityQuantity(5, 100))
	assert.NoError(t, validation.MortalityQuantity(100, 100))
	assert.ErrorIs(t, validation.MortalityQuantity(0, 100), validation.ErrInvalidQuantity)
	assert.ErrorIs(t, validation.MortalityQuantity(-3, 100), validation.ErrInvalidQuantity)
	assert.ErrorIs(t, validation.MortalityQuantity(101, 100), validation.ErrInvalidQuantity)
}

func TestEggSplit(t *testing.T) {
	assert.NoError(t, validation.EggSplit(80, 5))
	assert.NoError(t, validation.EggSplit(80, 0))
	assert.NoError(t, validation.EggSplit(80, 80))
	assert.ErrorIs(t, validation.EggSplit(0, 0), validation.ErrInvalidQuantity)
	assert.ErrorIs(t, validation.EggSplit(-1, 0), validation.ErrInvalidQuantity)
	assert.ErrorIs(t, validation.EggSplit(80, -1), validation.ErrInvalidQuantity)
	assert.ErrorIs(t, validation.EggSplit(80, 81), validation.ErrInvalidQuantity)
}

type staticLookup struct {
	existing map[string]string // dateKey -> record id
}

func (l staticLookup) ExistsOnDate(_ context.Context, _ models.EventKind, _ string, dateKey, excludingID string) (bool, error) {
	id, ok := l.existing[dateKey]
	if !ok {
		return false, nil
	}
	return id != excludingID, nil
}

func TestUniqueness(t *testing.T) {
	lookup := staticLookup{existing: map[string]string{"2025-03-10": "ev-1"}}
	ctx := context.Background()
	date := day(2025, time.March, 10)

	// Occupied day fails for a new record.
	err := validation.Uniqueness(ctx, lookup, models.KindFeed, "batch-1", date, "")
	require.ErrorIs(t, err, validation.ErrDuplicateDate)

	// Editing the record that occupies the day passes.
	assert.NoError(t, validation.Uniqueness(ctx, lookup, models.KindFeed, "batch-1", date, "ev-1"))

	// A free day passes.
	assert.NoError(t, validation.Uniqueness(ctx, lookup, models.KindFeed, "batch-1", day(2025, time.March, 11), ""))
}
