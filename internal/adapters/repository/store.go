// Package repository defines the persistence contracts of the badge engine
// and an in-memory implementation.
package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/okian/birdie/internal/domain/model"
)

// FriendshipStatus is the state of a friend relation.
type FriendshipStatus string

// Friendship states. Only accepted friendships count for historical badges.
const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// ProgressStore holds BadgeProgress keyed by (player, badge).
type ProgressStore interface {
	// GetProgress returns ErrNotFound when the pair was never evaluated.
	GetProgress(ctx context.Context, playerID, badgeID string) (model.BadgeProgress, error)

	// CompareAndSwapProgress stores next when the stored version equals
	// expectedVersion (0 for a pair not stored yet). The stored copy, with
	// its version bumped, is returned. A mismatch returns ErrProgressConflict.
	CompareAndSwapProgress(ctx context.Context, next model.BadgeProgress, expectedVersion int64) (model.BadgeProgress, error)

	// ListProgress returns every progress row of a player ordered by badge id.
	ListProgress(ctx context.Context, playerID string) ([]model.BadgeProgress, error)
}

// AwardStore is the append-only award table, unique on (player, badge, tier).
type AwardStore interface {
	// InsertAward returns false without error when the tier is already held.
	InsertAward(ctx context.Context, rec model.AwardRecord) (bool, error)

	// ListAwards returns a player's awards ordered by earned time.
	ListAwards(ctx context.Context, playerID string) ([]model.AwardRecord, error)
}

// RoundStore keeps completed rounds for historical aggregation.
type RoundStore interface {
	// SaveRound returns false when the round id is already stored.
	SaveRound(ctx context.Context, round model.NormalizedRound) (bool, error)

	// ScanPlayerRounds calls fn for every stored round the player organised
	// or has results in. Returning an error from fn stops the scan.
	ScanPlayerRounds(ctx context.Context, playerID string, fn func(model.NormalizedRound) error) error
}

// FriendStore is the social graph.
type FriendStore interface {
	// AddFriendship stores a symmetric relation between a and b.
	AddFriendship(ctx context.Context, a, b string, status FriendshipStatus) error

	// Friends returns the accepted friends of a player, sorted.
	Friends(ctx context.Context, playerID string) ([]string, error)
}

// Store is the full persistence surface.
type Store interface {
	ProgressStore
	AwardStore
	RoundStore
	FriendStore
	Close() error
}

func progressKey(playerID, badgeID string) string { return playerID + "\x00" + badgeID }

func awardKey(playerID, badgeID string, tier int) string {
	return playerID + "\x00" + badgeID + "\x00" + strconv.Itoa(tier)
}

// ValidateFriendship checks the inputs shared by every FriendStore.
func ValidateFriendship(a, b string, status FriendshipStatus) (string, string, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" || a == b {
		return "", "", ErrInvalidInput
	}
	switch status {
	case FriendshipPending, FriendshipAccepted:
	default:
		return "", "", ErrInvalidInput
	}
	return a, b, nil
}
