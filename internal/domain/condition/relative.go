package condition

import (
	"fmt"
	"sort"

	"github.com/okian/birdie/internal/domain/model"
)

// OpponentPredicate is implemented by predicates that compare a player
// against the other players of the same round. Opponents holds one result
// sequence per opponent.
type OpponentPredicate interface {
	EvaluateWithOpponents(player []model.HoleResult, layout []model.Hole, opponents [][]model.HoleResult) (int, error)
}

// RelativeComparison compares the player's total strokes with the minimum
// opponent total. With DeficitAtLeast > 0 the player must also have trailed
// the running best opponent by at least that many strokes at some hole.
type RelativeComparison struct {
	Outcome        string
	DeficitAtLeast int
}

// EvaluateWithOpponents returns 1 when the outcome holds. Rounds without
// opponents yield 0.
func (p RelativeComparison) EvaluateWithOpponents(player []model.HoleResult, _ []model.Hole, opponents [][]model.HoleResult) (int, error) {
	if len(player) == 0 {
		return 0, nil
	}
	best, ok := bestOpponentTotal(opponents)
	if !ok {
		return 0, nil
	}

	total := model.TotalStrokes(player)
	var holds bool
	switch p.Outcome {
	case OutcomeWon:
		holds = total < best
	case OutcomeLost:
		holds = total > best
	case OutcomeTied:
		holds = total == best
	default:
		return 0, fmt.Errorf("%w: outcome %q", ErrInvalidSpec, p.Outcome)
	}
	if !holds {
		return 0, nil
	}
	if p.DeficitAtLeast > 0 && !wasBehind(player, opponents, p.DeficitAtLeast) {
		return 0, nil
	}
	return 1, nil
}

func bestOpponentTotal(opponents [][]model.HoleResult) (int, bool) {
	best, ok := 0, false
	for _, opp := range opponents {
		if len(opp) == 0 {
			continue
		}
		t := model.TotalStrokes(opp)
		if !ok || t < best {
			best, ok = t, true
		}
	}
	return best, ok
}

// wasBehind walks holes in number order keeping running totals. Once the
// player trails the best running opponent total by k or more the flag stays
// set for the rest of the round.
func wasBehind(player []model.HoleResult, opponents [][]model.HoleResult, k int) bool {
	holes := make(map[int]struct{})
	playerBy := make(map[int]int, len(player))
	for _, r := range player {
		holes[r.HoleNumber] = struct{}{}
		playerBy[r.HoleNumber] = r.Strokes
	}
	oppBy := make([]map[int]int, 0, len(opponents))
	for _, opp := range opponents {
		if len(opp) == 0 {
			continue
		}
		m := make(map[int]int, len(opp))
		for _, r := range opp {
			holes[r.HoleNumber] = struct{}{}
			m[r.HoleNumber] = r.Strokes
		}
		oppBy = append(oppBy, m)
	}
	order := make([]int, 0, len(holes))
	for h := range holes {
		order = append(order, h)
	}
	sort.Ints(order)

	running := make([]int, len(oppBy))
	mine := 0
	for _, h := range order {
		mine += playerBy[h]
		bestRun := 0
		for i, m := range oppBy {
			running[i] += m[h]
			if i == 0 || running[i] < bestRun {
				bestRun = running[i]
			}
		}
		if len(oppBy) > 0 && mine-bestRun >= k {
			return true
		}
	}
	return false
}
