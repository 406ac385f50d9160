package model

import "math"

// NoVotes is the rating reported for a record nobody has voted on.
const NoVotes = -1

// ApprovalCategory buckets a rating for display.
type ApprovalCategory string

const (
	ApprovalHigh   ApprovalCategory = "high"
	ApprovalMedium ApprovalCategory = "medium"
	ApprovalLow    ApprovalCategory = "low"
	ApprovalNone   ApprovalCategory = "none"
)

// Approval is the per-cell rating derived from feedback counters. It is
// never stored.
type Approval struct {
	Rating   int              `json:"rating"`
	Votes    int              `json:"votes"`
	Category ApprovalCategory `json:"category"`
}

// NewApproval computes round(up / (up+down) * 100), or NoVotes when there
// are no votes.
func NewApproval(up, down int) Approval {
	total := up + down
	if total <= 0 {
		return Approval{Rating: NoVotes, Votes: 0, Category: ApprovalNone}
	}
	rating := int(math.Round(float64(up) / float64(total) * 100))
	return Approval{Rating: rating, Votes: total, Category: categorize(rating)}
}

func categorize(rating int) ApprovalCategory {
	switch {
	case rating < 0:
		return ApprovalNone
	case rating >= 75:
		return ApprovalHigh
	case rating >= 50:
		return ApprovalMedium
	default:
		return ApprovalLow
	}
}
