// Package model contains domain models passed between layers.
package model

import "time"

// CompletedRoundEvent is the raw payload handed over by the round service
// once a round is finalised. Field names mirror the upstream JSON contract.
type CompletedRoundEvent struct {
	RoundID     string      `json:"roundId"`
	CourseID    string      `json:"courseId"`
	OrganizerID FlexID      `json:"organizerId,omitempty"`
	Layout      []RawHole   `json:"layout"`
	Results     []RawResult `json:"results"`
}

// RawHole is a layout entry; upstream uses either number or holeNumber.
type RawHole struct {
	Number     *int     `json:"number,omitempty"`
	HoleNumber *int     `json:"holeNumber,omitempty"`
	Par        int      `json:"par"`
	Length     *float64 `json:"length,omitempty"`
	Unit       string   `json:"unit,omitempty"` // "m" (default) or "ft"
}

// RawResult is one player's score on one hole.
type RawResult struct {
	PlayerID   FlexID    `json:"playerId"`
	HoleNumber *int      `json:"holeNumber,omitempty"`
	Number     *int      `json:"number,omitempty"`
	Strokes    int       `json:"strokes"`
	PuttZone   string    `json:"puttZone,omitempty"`
	OBCount    int       `json:"obCount,omitempty"`
	Flags      []string  `json:"flags,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hole is a canonical layout hole.
type Hole struct {
	Number       int      `json:"number"`
	Par          int      `json:"par"`
	LengthMeters *float64 `json:"lengthMeters,omitempty"`
}

// HoleResult is a canonical per-hole score.
type HoleResult struct {
	HoleNumber int       `json:"holeNumber"`
	Strokes    int       `json:"strokes"`
	PuttZone   string    `json:"puttZone,omitempty"`
	OBCount    int       `json:"obCount,omitempty"`
	Flags      []string  `json:"flags,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasFlag reports whether the result carries flag.
func (r HoleResult) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// NormalizedRound is a round with a canonical layout and per-player results
// sorted by hole number. Every result references a layout hole.
type NormalizedRound struct {
	RoundID          string                  `json:"roundId"`
	CourseID         string                  `json:"courseId"`
	OrganizerID      string                  `json:"organizerId,omitempty"`
	Layout           []Hole                  `json:"layout"`
	PerPlayerResults map[string][]HoleResult `json:"perPlayerResults"`
}

// Players returns the ids of players with results, sorted.
func (r NormalizedRound) Players() []string {
	ids := make([]string, 0, len(r.PerPlayerResults))
	for id := range r.PerPlayerResults {
		ids = append(ids, id)
	}
	sortStrings(ids)
	return ids
}

// Opponents returns the result sequences of every player except playerID,
// ordered by player id.
func (r NormalizedRound) Opponents(playerID string) [][]HoleResult {
	var out [][]HoleResult
	for _, id := range r.Players() {
		if id == playerID {
			continue
		}
		out = append(out, r.PerPlayerResults[id])
	}
	return out
}

// TotalStrokes sums strokes across results.
func TotalStrokes(results []HoleResult) int {
	total := 0
	for _, res := range results {
		total += res.Strokes
	}
	return total
}

// CompletedAt is the latest result timestamp in the round.
func (r NormalizedRound) CompletedAt() time.Time {
	var latest time.Time
	for _, results := range r.PerPlayerResults {
		for _, res := range results {
			if res.Timestamp.After(latest) {
				latest = res.Timestamp
			}
		}
	}
	return latest
}
