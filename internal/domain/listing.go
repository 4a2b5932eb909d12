package domain

import "time"

// Listing status constants.
const (
	ListingStatusAvailable = "available"
	ListingStatusExchanged = "exchanged"
)

// Listing represents a skill offered by a user. A listing is marked
// exchanged when an exchange against it is accepted.
type Listing struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAvailable reports whether the listing can be the target of a new exchange.
func (l *Listing) IsAvailable() bool {
	return l.Status == ListingStatusAvailable
}
