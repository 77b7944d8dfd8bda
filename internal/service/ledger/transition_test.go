package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
	"github.com/poultrypro/backend/internal/service/ledger"
)

func testBatch(initial int) models.Batch {
	return models.Batch{
		ID:            "batch-1",
		OwnerID:       "owner-1",
		Name:          "Layers A",
		InitialCount:  initial,
		CurrentCount:  initial,
		PlacementDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestApplyMortality_SequenceConservesCount(t *testing.T) {
	// Applying deaths d1..dn leaves currentCount = C0 - sum(d1..di) after
	// each step, and no step may exceed the count before it.
	b := testBatch(100)
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	deaths := []int{5, 10, 1, 30}

	sum := 0
	for i, d := range deaths {
		date := now.AddDate(0, 0, i)
		updated, ev, err := ledger.ApplyMortality(b, d, "coccidiosis", date, now)
		require.NoError(t, err)

		sum += d
		assert.Equal(t, 100-sum, updated.CurrentCount)
		assert.Equal(t, updated.CurrentCount, ev.RemainingAfter)
		assert.Equal(t, d, ev.Deaths)
		assert.Equal(t, 100, updated.InitialCount, "mortality never touches initialCount")
		b = updated
	}

	assert.Equal(t, sum, b.DisplayedMortality())
}

func TestApplyMortality_ExceedsCount(t *testing.T) {
	b := testBatch(10)
	now := time.Now()

	_, _, err := ledger.ApplyMortality(b, 11, "heat stress", now, now)
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity)
	assert.Equal(t, 10, b.CurrentCount, "failed transition must not change state")
}

func TestApplyMortality_BlankCause(t *testing.T) {
	b := testBatch(10)
	now := time.Now()

	_, _, err := ledger.ApplyMortality(b, 2, "   ", now, now)
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity)
}

func TestAdjustCount_DecreaseRejected(t *testing.T) {
	b := testBatch(100)
	b.CurrentCount = 95

	_, _, err := ledger.AdjustCount(b, 90, time.Now())
	assert.ErrorIs(t, err, validation.ErrDecreaseNotAllowed)
}

func TestAdjustCount_IncreaseMovesBothCounters(t *testing.T) {
	// currentCount=95, initialCount=100; correcting to 100 must raise
	// initialCount to 105 so displayed mortality stays at 5.
	b := testBatch(100)
	b.CurrentCount = 95

	updated, delta, err := ledger.AdjustCount(b, 100, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 5, delta)
	assert.Equal(t, 100, updated.CurrentCount)
	assert.Equal(t, 105, updated.InitialCount)
	assert.Equal(t, 5, updated.DisplayedMortality())
}

func TestAdjustCount_NoChange(t *testing.T) {
	b := testBatch(100)

	updated, delta, err := ledger.AdjustCount(b, 100, time.Now())
	require.NoError(t, err)
	assert.Zero(t, delta)
	assert.Equal(t, b, updated)
}

func TestAdjustCount_NegativeRejected(t *testing.T) {
	b := testBatch(0)

	_, _, err := ledger.AdjustCount(b, -1, time.Now())
	assert.ErrorIs(t, err, validation.ErrInvalidQuantity)
}
