package roundsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
)

const (
	minGroup     = 2
	maxGroup     = 4
	courseCount  = 5
	holeInterval = 6 * time.Minute
	obChance     = 12 // one in obChance holes records an OB stroke
)

// Stroke offsets relative to par, weighted toward bogey golf with the
// occasional ace or eagle so tiered badges get exercised.
var scoreDeltas = []int{-2, -1, -1, -1, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3}

// randomInt returns a uniform int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// generatePlayers creates a pool of unique player ids.
func generatePlayers(n int) []string {
	players := make([]string, n)
	for i := range players {
		players[i] = uuid.NewString()
	}
	return players
}

// generateLayouts builds one fixed layout per simulated course.
func generateLayouts(holes int) [][]model.RawHole {
	layouts := make([][]model.RawHole, courseCount)
	for c := range layouts {
		layout := make([]model.RawHole, holes)
		for h := range layout {
			number := h + 1
			par := 3 + randomInt(3)
			length := float64(60 + par*30 + randomInt(60))
			layout[h] = model.RawHole{HoleNumber: &number, Par: par, Length: &length}
		}
		layouts[c] = layout
	}
	return layouts
}

// generateRounds creates rounds for random groups drawn from players.
func generateRounds(ctx context.Context, cfg *Config, players []string, stats *Stats) ([]model.CompletedRoundEvent, error) {
	logger.Get().Info(ctx, "generating rounds", logger.Int("rounds", cfg.Rounds), logger.Int("players", len(players)))

	if len(players) < minGroup {
		return nil, fmt.Errorf("need at least %d players, have %d", minGroup, len(players))
	}

	layouts := generateLayouts(cfg.Holes)
	start := time.Now().UTC().Add(-time.Duration(cfg.Rounds) * time.Hour)

	rounds := make([]model.CompletedRoundEvent, cfg.Rounds)
	for i := range rounds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during round generation: %w", err)
		}
		course := randomInt(courseCount)
		teeOff := start.Add(time.Duration(i) * time.Hour)
		rounds[i] = generateRound("course-"+strconv.Itoa(course+1), layouts[course], pickGroup(players), teeOff)
	}

	stats.RoundsGenerated = len(rounds)
	logger.Get().Info(ctx, "generated rounds successfully", logger.Int("count", len(rounds)))
	return rounds, nil
}

// pickGroup returns 2-4 distinct players.
func pickGroup(players []string) []string {
	size := minGroup + randomInt(maxGroup-minGroup+1)
	if size > len(players) {
		size = len(players)
	}
	picked := make(map[int]struct{}, size)
	group := make([]string, 0, size)
	for len(group) < size {
		idx := randomInt(len(players))
		if _, ok := picked[idx]; ok {
			continue
		}
		picked[idx] = struct{}{}
		group = append(group, players[idx])
	}
	return group
}

func generateRound(courseID string, layout []model.RawHole, group []string, teeOff time.Time) model.CompletedRoundEvent {
	ev := model.CompletedRoundEvent{
		RoundID:     uuid.NewString(),
		CourseID:    courseID,
		OrganizerID: model.FlexID(group[0]),
		Layout:      layout,
	}
	for _, player := range group {
		for h, hole := range layout {
			number := *hole.HoleNumber
			strokes := hole.Par + scoreDeltas[randomInt(len(scoreDeltas))]
			if strokes < 1 {
				strokes = 1
			}
			result := model.RawResult{
				PlayerID:   model.FlexID(player),
				HoleNumber: &number,
				Strokes:    strokes,
				Timestamp:  teeOff.Add(time.Duration(h+1) * holeInterval),
			}
			if randomInt(obChance) == 0 {
				result.OBCount = 1
				result.Strokes++
			}
			ev.Results = append(ev.Results, result)
		}
	}
	return ev
}
