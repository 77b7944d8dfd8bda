package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/domain/validation"
)

// The functions in this file are the ledger's state-transition core. They
// take the prior batch state and produce the new state plus the event that
// caused it, without touching any store. The persisting service and the
// tests both drive them.

// ApplyMortality computes the counter transition for deaths recorded on
// date. The returned event carries RemainingAfter, the counter snapshot
// taken at transition time.
func ApplyMortality(b models.Batch, deaths int, cause string, date, now time.Time) (models.Batch, models.MortalityEvent, error) {
	if err := validation.MortalityQuantity(deaths, b.CurrentCount); err != nil {
		return b, models.MortalityEvent{}, err
	}
	if err := validation.MortalityCause(cause); err != nil {
		return b, models.MortalityEvent{}, err
	}

	remaining := b.CurrentCount - deaths
	ev := models.MortalityEvent{
		EventMeta: models.EventMeta{
			BatchID:   b.ID,
			Date:      models.Midnight(date),
			DateKey:   models.DateKey(date),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Deaths:         deaths,
		CauseOfDeath:   strings.TrimSpace(cause),
		RemainingAfter: remaining,
	}

	b.CurrentCount = remaining
	b.LastUpdate = now
	return b, ev, nil
}

// AdjustCount corrects an undercount. Decreases are rejected: the only
// legal downward path for CurrentCount is a mortality event. On increase,
// InitialCount moves by the same delta so the displayed mortality
// (InitialCount - CurrentCount) is unchanged by the correction.
func AdjustCount(b models.Batch, newCurrent int, now time.Time) (models.Batch, int, error) {
	if newCurrent < 0 {
		return b, 0, fmt.Errorf("%w: count must not be negative, got %d", validation.ErrInvalidQuantity, newCurrent)
	}
	if newCurrent < b.CurrentCount {
		return b, 0, fmt.Errorf("%w: current count is %d, cannot set it to %d",
			validation.ErrDecreaseNotAllowed, b.CurrentCount, newCurrent)
	}

	delta := newCurrent - b.CurrentCount
	if delta == 0 {
		return b, 0, nil
	}

	b.CurrentCount = newCurrent
	b.InitialCount += delta
	b.LastUpdate = now
	return b, delta, nil
}
