// Package validation holds the pure date and quantity rules that every
// event write must pass before anything is persisted. The rules never touch
// a store; uniqueness checks go through the narrow Lookup interface so the
// same code runs against MongoDB and the in-memory store.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poultrypro/backend/internal/domain/models"
)

// Sentinel errors for user-correctable validation failures. Handlers map
// these onto 4xx responses; services never persist anything once one is
// returned.
var (
	ErrDateOutOfRange     = errors.New("date out of range")
	ErrDuplicateDate      = errors.New("record for this date already exists")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrDecreaseNotAllowed = errors.New("current count cannot be decreased")
	ErrImmutableEvent     = errors.New("mortality records cannot be edited or deleted")
)

// Integrity errors. These abort the operation; nothing is written.
var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrNotOwner      = errors.New("batch not owned by caller")
)

// Lookup is the single store capability validation needs: does an event of
// this kind already exist for the batch on the given calendar day,
// excluding (for edits) the record being rewritten.
type Lookup interface {
	ExistsOnDate(ctx context.Context, kind models.EventKind, batchID, dateKey, excludingID string) (bool, error)
}

// EventDate rejects backdated events and events before batch placement.
// All comparisons are calendar-day comparisons in UTC.
func EventDate(date, placementDate, today time.Time) error {
	d := models.Midnight(date)
	if d.Before(models.Midnight(today)) {
		return fmt.Errorf("%w: %s is in the past", ErrDateOutOfRange, models.DateKey(date))
	}
	if d.Before(models.Midnight(placementDate)) {
		return fmt.Errorf("%w: %s precedes placement date %s", ErrDateOutOfRange, models.DateKey(date), models.DateKey(placementDate))
	}
	return nil
}

// Uniqueness enforces at most one event per stream per batch per day.
// excludingID lets an edit re-validate without colliding with itself.
func Uniqueness(ctx context.Context, lookup Lookup, kind models.EventKind, batchID string, date time.Time, excludingID string) error {
	exists, err := lookup.ExistsOnDate(ctx, kind, batchID, models.DateKey(date), excludingID)
	if err != nil {
		return fmt.Errorf("uniqueness lookup: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateDate, kind, models.DateKey(date))
	}
	return nil
}

// MortalityQuantity bounds deaths by the live count observed at apply time.
func MortalityQuantity(deaths, currentCount int) error {
	if deaths <= 0 {
		return fmt.Errorf("%w: deaths must be positive, got %d", ErrInvalidQuantity, deaths)
	}
	if deaths > currentCount {
		return fmt.Errorf("%w: %d deaths exceed current count %d", ErrInvalidQuantity, deaths, currentCount)
	}
	return nil
}

// MortalityCause requires a non-empty cause of death.
func MortalityCause(cause string) error {
	if strings.TrimSpace(cause) == "" {
		return fmt.Errorf("%w: cause of death is required", ErrInvalidQuantity)
	}
	return nil
}

// EggSplit checks the total/broken split of a production record.
func EggSplit(total, broken int) error {
	if total <= 0 {
		return fmt.Errorf("%w: total must be positive, got %d", ErrInvalidQuantity, total)
	}
	if broken < 0 {
		return fmt.Errorf("%w: broken must not be negative, got %d", ErrInvalidQuantity, broken)
	}
	if broken > total {
		return fmt.Errorf("%w: broken %d exceeds total %d", ErrInvalidQuantity, broken, total)
	}
	return nil
}

// FeedQuantities checks a feed record's amounts.
func FeedQuantities(grams int, price float64) error {
	if grams <= 0 {
		return fmt.Errorf("%w: grams must be positive, got %d", ErrInvalidQuantity, grams)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidQuantity)
	}
	return nil
}

// VaccinationPrice checks a vaccination record's price.
func VaccinationPrice(price float64) error {
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidQuantity)
	}
	return nil
}
