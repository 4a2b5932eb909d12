package domain

import "time"

// Exchange status constants.
const (
	ExchangeStatusPending   = "pending"
	ExchangeStatusAccepted  = "accepted"
	ExchangeStatusRejected  = "rejected"
	ExchangeStatusCompleted = "completed"
)

// Exchange represents a request by one user for another user's listing,
// carrying a lifecycle status. ProviderID and ListingTitle are denormalized
// from the referenced listing when the exchange is loaded.
type Exchange struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	ListingID   string    `json:"listing_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ProviderID    string `json:"provider_id,omitempty"`
	ListingTitle  string `json:"listing_title,omitempty"`
	CounterpartID string `json:"counterpart_id,omitempty"`
}

// ValidStatuses returns all valid exchange statuses.
func ValidStatuses() []string {
	return []string{
		ExchangeStatusPending,
		ExchangeStatusAccepted,
		ExchangeStatusRejected,
		ExchangeStatusCompleted,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidDecisions returns the statuses a provider may choose when responding
// to a pending exchange.
func ValidDecisions() []string {
	return []string{ExchangeStatusAccepted, ExchangeStatusRejected}
}

// IsValidDecision checks if a decision string is a legal response.
func IsValidDecision(decision string) bool {
	return decision == ExchangeStatusAccepted || decision == ExchangeStatusRejected
}

// AllowedTransitions defines which status transitions are valid. Transitions
// only move forward; rejected and completed are terminal.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		ExchangeStatusPending:   {ExchangeStatusAccepted, ExchangeStatusRejected},
		ExchangeStatusAccepted:  {ExchangeStatusCompleted},
		ExchangeStatusRejected:  {},
		ExchangeStatusCompleted: {},
	}
}

// CanTransitionTo checks if the exchange can transition to the target status.
func (e *Exchange) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[e.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are valid from the
// current status.
func (e *Exchange) IsTerminal() bool {
	return len(AllowedTransitions()[e.Status]) == 0
}

// IsParty reports whether the given user is the requester or the provider.
func (e *Exchange) IsParty(userID string) bool {
	return userID == e.RequesterID || userID == e.ProviderID
}

// CounterpartOf returns the other party relative to the given user, or the
// empty string if the user is not a party to the exchange.
func (e *Exchange) CounterpartOf(userID string) string {
	switch userID {
	case e.RequesterID:
		return e.ProviderID
	case e.ProviderID:
		return e.RequesterID
	}
	return ""
}
