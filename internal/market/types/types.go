package types

import (
	"time"

	"cosmossdk.io/math"
)

// ModuleName is the codespace and event prefix for the market engine.
const ModuleName = "market"

// RequestStatus is the lifecycle state of an escrowed service request.
type RequestStatus uint8

const (
	// RequestStatusPending is reserved for a future explicit-acceptance step.
	// CreateRequest moves straight to InProgress, so no transition enters it.
	RequestStatusPending RequestStatus = iota
	RequestStatusInProgress
	RequestStatusCompleted
	RequestStatusFinalized
	RequestStatusCancelled
)

func (s RequestStatus) String() string {
	switch s {
	case RequestStatusPending:
		return "PENDING"
	case RequestStatusInProgress:
		return "IN_PROGRESS"
	case RequestStatusCompleted:
		return "COMPLETED"
	case RequestStatusFinalized:
		return "FINALIZED"
	case RequestStatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition may leave this state.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusFinalized || s == RequestStatusCancelled
}

// Listing is a purchasable service owned by a provider. The ID and Owner are
// immutable once assigned; Price is always positive.
type Listing struct {
	ID          uint64    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       math.Int  `json:"price"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	TotalSales  uint64    `json:"total_sales"`
}

// Request is an escrowed purchase of a listing. Provider and Price are copied
// from the listing at creation time and never re-read, so later listing edits
// cannot change the terms of an open request.
type Request struct {
	ID              uint64        `json:"id"`
	ListingID       uint64        `json:"listing_id"`
	Buyer           string        `json:"buyer"`
	Provider        string        `json:"provider"`
	Price           math.Int      `json:"price"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	RatingSubmitted bool          `json:"rating_submitted"`
}

// ReputationRecord tracks settlement history per provider. AverageScaled is
// the running weighted average rating pre-scaled by 100 (450 means 4.50).
type ReputationRecord struct {
	Provider        string `json:"provider"`
	RatingCount     uint64 `json:"rating_count"`
	AverageScaled   uint64 `json:"average_scaled"`
	SettlementCount uint64 `json:"settlement_count"`
}

// RatingScale converts a 1-5 rating to its stored two-decimal fixed-point form.
const RatingScale = 100

// MinRating and MaxRating bound acceptable ratings on confirmation.
const (
	MinRating uint32 = 1
	MaxRating uint32 = 5
)
