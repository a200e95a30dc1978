package history

import "fmt"

// Comparison is the per-round test applied between a player and the friends
// who played the same round.
type Comparison string

// Supported comparisons.
const (
	LostToFriend     Comparison = "lost_to_friend"
	BeatFriends      Comparison = "beat_friends"
	TiedFriend       Comparison = "tied_friend"
	PlayedWithFriend Comparison = "played_with_friend"
)

// Spec describes a historical badge predicate.
type Spec struct {
	Comparison Comparison `json:"comparison" koanf:"comparison"`
}

// Validate checks the comparison is known.
func (s Spec) Validate() error {
	switch s.Comparison {
	case LostToFriend, BeatFriends, TiedFriend, PlayedWithFriend:
		return nil
	}
	return fmt.Errorf("%w: comparison %q", ErrInvalidSpec, s.Comparison)
}

// Matches applies c to one round. friendTotals holds the totals of the
// friends who also played; it is never empty.
func (c Comparison) Matches(playerTotal int, friendTotals []int) bool {
	if len(friendTotals) == 0 {
		return false
	}
	best := friendTotals[0]
	for _, t := range friendTotals[1:] {
		best = min(best, t)
	}
	switch c {
	case LostToFriend:
		return playerTotal > best
	case BeatFriends:
		return playerTotal < best
	case TiedFriend:
		for _, t := range friendTotals {
			if t == playerTotal {
				return true
			}
		}
		return false
	case PlayedWithFriend:
		return true
	}
	return false
}
