package models

import "time"

// HealthStatus is a coarse, user-maintained flag describing a batch's condition.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "Healthy"
	HealthSick     HealthStatus = "Sick"
	HealthCritical HealthStatus = "Critical"
)

// Batch represents one managed group of birds and its population counters.
//
// CurrentCount is mutated only by the ledger engine: it decreases when a
// mortality event is applied and increases when an undercount is corrected
// through a manual adjustment. InitialCount moves together with manual
// increases so that InitialCount-CurrentCount always equals the mortality
// shown to the user.
type Batch struct {
	ID            string       `bson:"_id,omitempty" json:"id"`
	OwnerID       string       `bson:"ownerId" json:"ownerId"`
	Name          string       `bson:"name" json:"name"`
	Type          string       `bson:"type" json:"type"` // e.g. "Layer", "Broiler"
	Breed         string       `bson:"breed" json:"breed"`
	InitialCount  int          `bson:"initialCount" json:"initialCount"`
	CurrentCount  int          `bson:"currentCount" json:"currentCount"`
	Price         float64      `bson:"price" json:"price"`
	PlacementDate time.Time    `bson:"placementDate" json:"placementDate"`
	HealthStatus  HealthStatus `bson:"healthStatus" json:"healthStatus"`
	LastUpdate    time.Time    `bson:"lastUpdate" json:"lastUpdate"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
}

// DisplayedMortality is the cumulative death count derived from the two
// counters. It is never stored.
func (b Batch) DisplayedMortality() int {
	return b.InitialCount - b.CurrentCount
}
