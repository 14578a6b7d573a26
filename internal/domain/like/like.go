package like

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/artfeed/internal/domain"
)

// Transition is the membership change one toggle applies.
type Transition struct {
	// Liked is the membership state after the toggle.
	Liked bool
	// Count is the aggregate after the toggle.
	Count int64
}

// Decide computes the toggle transition from the current membership state and
// counter value. A result below zero means the counter and the membership set
// already disagree; it is reported as ErrInvariantViolation, never clamped.
func Decide(liked bool, count int64) (Transition, error) {
	if count < 0 {
		return Transition{}, fmt.Errorf("%w: stored like count %d is negative", domain.ErrInvariantViolation, count)
	}
	if !liked {
		return Transition{Liked: true, Count: count + 1}, nil
	}
	if count == 0 {
		return Transition{}, fmt.Errorf("%w: membership exists but like count is 0", domain.ErrInvariantViolation)
	}
	return Transition{Liked: false, Count: count - 1}, nil
}

// Outcome is the result of a committed toggle.
type Outcome struct {
	ItemID    string
	Liked     bool
	LikeCount int64
}

// Audit compares the stored counter with the membership set it aggregates.
type Audit struct {
	ItemID    string
	LikeCount int64
	Members   int64
}

// Consistent reports whether the counter equals the membership cardinality.
func (a Audit) Consistent() bool { return a.LikeCount == a.Members }

// ErrContended reports that a concurrent writer changed the item or the
// membership between read and commit. The attempt applied nothing.
var ErrContended = errors.New("like: contended")
