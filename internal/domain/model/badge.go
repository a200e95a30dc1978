package model

import (
	"sort"
	"time"
)

// UnearnedTier marks a BadgeProgress that has not reached any tier.
const UnearnedTier = -1

// BadgeProgress is the per player x badge progress state.
type BadgeProgress struct {
	PlayerID           string    `json:"playerId"`
	BadgeID            string    `json:"badgeId"`
	CurrentTier        int       `json:"currentTier"`
	TotalProgress      int       `json:"totalProgress"`
	TrackedThresholds  []int     `json:"trackedThresholds"`
	LastUpdatedRoundID string    `json:"lastUpdatedRoundId,omitempty"`
	// AppliedRoundIDs lists the rounds whose non-zero contribution is
	// already part of TotalProgress. Only accumulating badges fill it.
	AppliedRoundIDs    []string  `json:"appliedRoundIds,omitempty"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// NewBadgeProgress returns the state of a pair that was never evaluated.
func NewBadgeProgress(playerID, badgeID string) BadgeProgress {
	return BadgeProgress{PlayerID: playerID, BadgeID: badgeID, CurrentTier: UnearnedTier}
}

// Tracks reports whether tier already produced an award.
func (p BadgeProgress) Tracks(tier int) bool {
	for _, t := range p.TrackedThresholds {
		if t == tier {
			return true
		}
	}
	return false
}

// Applied reports whether roundID's contribution is already counted.
func (p BadgeProgress) Applied(roundID string) bool {
	for _, id := range p.AppliedRoundIDs {
		if id == roundID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p BadgeProgress) Clone() BadgeProgress {
	c := p
	c.TrackedThresholds = append([]int(nil), p.TrackedThresholds...)
	if p.AppliedRoundIDs != nil {
		c.AppliedRoundIDs = append([]string(nil), p.AppliedRoundIDs...)
	}
	return c
}

// AwardRecord is an immutable grant of one badge tier to one player.
type AwardRecord struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"playerId"`
	BadgeID  string    `json:"badgeId"`
	Tier     int       `json:"tier"`
	CourseID string    `json:"courseId,omitempty"`
	RoundID  string    `json:"roundId,omitempty"`
	EarnedAt time.Time `json:"earnedAt"`
}

// EarnedBadge is one newly created award in an evaluation report.
type EarnedBadge struct {
	BadgeID string `json:"badgeId"`
	Tier    int    `json:"tierAwarded"`
}

// EarnedBadgesReport maps player id to awards newly created by one evaluation.
// Players without new awards are absent.
type EarnedBadgesReport map[string][]EarnedBadge

// Count returns the number of awards in the report.
func (r EarnedBadgesReport) Count() int {
	n := 0
	for _, awards := range r {
		n += len(awards)
	}
	return n
}

func sortStrings(s []string) { sort.Strings(s) }
