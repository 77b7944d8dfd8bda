package models

import "time"

// EventKind identifies one of the four dated record streams attached to a batch.
type EventKind string

const (
	KindFeed          EventKind = "feed"
	KindMortality     EventKind = "mortality"
	KindEggProduction EventKind = "egg-production"
	KindVaccination   EventKind = "vaccination"
)

// ValidKind reports whether k names a known event stream.
func ValidKind(k EventKind) bool {
	switch k {
	case KindFeed, KindMortality, KindEggProduction, KindVaccination:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// DateKey collapses a timestamp to its calendar day. Event uniqueness is
// keyed on (batchId, DateKey): at most one record per stream per day.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Midnight normalizes a timestamp to UTC midnight of the same calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EventMeta carries the fields shared by all four event variants.
type EventMeta struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	BatchID   string    `bson:"batchId" json:"batchId"`
	Date      time.Time `bson:"date" json:"date"`
	DateKey   string    `bson:"dateKey" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FeedEvent records one day's feed purchase for a batch.
type FeedEvent struct {
	EventMeta `bson:",inline"`
	FeedType  string  `bson:"feedType" json:"feedType"`
	Grams     int     `bson:"grams" json:"grams"`
	Price     float64 `bson:"price" json:"price"`
}

// MortalityEvent records deaths applied to the batch counter on a given day.
// RemainingAfter is the counter value snapshot taken when the event was
// committed; the ledger engine guarantees it matches the batch document.
type MortalityEvent struct {
	EventMeta      `bson:",inline"`
	Deaths         int    `bson:"deaths" json:"deaths"`
	CauseOfDeath   string `bson:"causeOfDeath" json:"causeOfDeath"`
	RemainingAfter int    `bson:"remainingAfter" json:"remainingAfter"`
	// IdempotencyKey is the client-generated token that makes retries of the
	// same apply safe. Unique per committed event.
	IdempotencyKey string `bson:"idempotencyKey,omitempty" json:"-"`
}

// EggProductionEvent records one day's lay. Remaining = Total - Broken.
type EggProductionEvent struct {
	EventMeta `bson:",inline"`
	Total     int `bson:"total" json:"total"`
	Broken    int `bson:"broken" json:"broken"`
	Remaining int `bson:"remaining" json:"remaining"`
}

// VaccinationEvent records a scheduled or completed vaccination. Only
// completed (Done) vaccinations count as cost in the financial report.
// ReminderCount tracks how many reminders the sweep has issued, capped at
// MaxVaccinationReminders.
type VaccinationEvent struct {
	EventMeta     `bson:",inline"`
	Type          string  `bson:"type" json:"type"`
	Price         float64 `bson:"price" json:"price"`
	Done          bool    `bson:"done" json:"done"`
	ReminderCount int     `bson:"reminderCount" json:"reminderCount"`
}

// MaxVaccinationReminders bounds the reminder sweep per vaccination record.
const MaxVaccinationReminders = 3
