package domain

import "time"

// Rating score bounds.
const (
	RatingScoreMin = 1
	RatingScoreMax = 5
)

// Rating represents a post-completion score one party gives the other.
// At most one rating exists per (exchange, rater) pair.
type Rating struct {
	ID          string    `json:"id"`
	ExchangeID  string    `json:"exchange_id"`
	RaterID     string    `json:"rater_id"`
	RatedUserID string    `json:"rated_user_id"`
	Score       int       `json:"score"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsValidScore checks that a score lies within the allowed range.
func IsValidScore(score int) bool {
	return score >= RatingScoreMin && score <= RatingScoreMax
}

// RatingSummary contains aggregate rating statistics for a user.
type RatingSummary struct {
	UserID       string  `json:"user_id"`
	AverageScore float64 `json:"average_score"`
	TotalCount   int     `json:"total_count"`
}
