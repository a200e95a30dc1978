// Package normalize converts raw completed-round payloads into canonical rounds.
package normalize

import (
	"sort"
	"strings"

	"github.com/okian/birdie/internal/domain/model"
)

const metersPerFoot = 0.3048

// Round canonicalises a raw completed round. It never fails: malformed holes
// and results are dropped. A round without any valid result yields an empty
// PerPlayerResults map.
func Round(ev model.CompletedRoundEvent) model.NormalizedRound {
	layout := Layout(ev.Layout)

	pars := make(map[int]struct{}, len(layout))
	for _, h := range layout {
		pars[h.Number] = struct{}{}
	}

	perPlayer := make(map[string][]model.HoleResult)
	seen := make(map[string]map[int]struct{})
	for _, raw := range ev.Results {
		playerID := raw.PlayerID.String()
		if playerID == "" || raw.Strokes <= 0 {
			continue
		}
		number, ok := resultHole(raw)
		if !ok {
			continue
		}
		if _, ok := pars[number]; !ok {
			continue
		}
		holes := seen[playerID]
		if holes == nil {
			holes = make(map[int]struct{})
			seen[playerID] = holes
		}
		if _, dup := holes[number]; dup {
			continue
		}
		holes[number] = struct{}{}

		perPlayer[playerID] = append(perPlayer[playerID], model.HoleResult{
			HoleNumber: number,
			Strokes:    raw.Strokes,
			PuttZone:   strings.TrimSpace(raw.PuttZone),
			OBCount:    max(raw.OBCount, 0),
			Flags:      cleanFlags(raw.Flags),
			Timestamp:  raw.Timestamp,
		})
	}

	for _, results := range perPlayer {
		SortResults(results)
	}

	return model.NormalizedRound{
		RoundID:          strings.TrimSpace(ev.RoundID),
		CourseID:         strings.TrimSpace(ev.CourseID),
		OrganizerID:      ev.OrganizerID.String(),
		Layout:           layout,
		PerPlayerResults: perPlayer,
	}
}

// Layout returns the canonical layout: positive numbers and pars only,
// first occurrence wins, sorted by hole number, lengths in meters.
func Layout(raw []model.RawHole) []model.Hole {
	out := make([]model.Hole, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, rh := range raw {
		number, ok := layoutHole(rh)
		if !ok || rh.Par <= 0 {
			continue
		}
		if _, dup := seen[number]; dup {
			continue
		}
		seen[number] = struct{}{}
		out = append(out, model.Hole{
			Number:       number,
			Par:          rh.Par,
			LengthMeters: lengthMeters(rh.Length, rh.Unit),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// SortResults orders results by hole number in place.
func SortResults(results []model.HoleResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].HoleNumber < results[j].HoleNumber })
}

func layoutHole(rh model.RawHole) (int, bool) {
	switch {
	case rh.Number != nil && *rh.Number > 0:
		return *rh.Number, true
	case rh.HoleNumber != nil && *rh.HoleNumber > 0:
		return *rh.HoleNumber, true
	}
	return 0, false
}

func resultHole(rr model.RawResult) (int, bool) {
	switch {
	case rr.HoleNumber != nil && *rr.HoleNumber > 0:
		return *rr.HoleNumber, true
	case rr.Number != nil && *rr.Number > 0:
		return *rr.Number, true
	}
	return 0, false
}

func lengthMeters(length *float64, unit string) *float64 {
	if length == nil || *length <= 0 {
		return nil
	}
	v := *length
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ft", "feet", "foot":
		v *= metersPerFoot
	}
	return &v
}

func cleanFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
