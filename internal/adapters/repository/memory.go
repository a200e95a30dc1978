package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/metrics"
)

// MemoryStore implements Store in process memory. It has no server-side
// aggregation, so historical badges use the streaming path against it.
type MemoryStore struct {
	mu sync.RWMutex

	progress map[string]model.BadgeProgress
	awards   map[string]model.AwardRecord
	byPlayer map[string][]string // player -> award keys in insertion order

	rounds      map[string]model.NormalizedRound
	roundOrder  []string
	playerIndex map[string][]string // player -> round ids

	friends map[string]map[string]FriendshipStatus

	now    func() time.Time
	closed bool
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		progress:    make(map[string]model.BadgeProgress),
		awards:      make(map[string]model.AwardRecord),
		byPlayer:    make(map[string][]string),
		rounds:      make(map[string]model.NormalizedRound),
		playerIndex: make(map[string][]string),
		friends:     make(map[string]map[string]FriendshipStatus),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}

// GetProgress implements ProgressStore.
func (s *MemoryStore) GetProgress(ctx context.Context, playerID, badgeID string) (model.BadgeProgress, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.BadgeProgress{}, err
	}
	p, ok := s.progress[progressKey(playerID, badgeID)]
	if !ok {
		return model.BadgeProgress{}, fmt.Errorf("%w: progress %s/%s", ErrNotFound, playerID, badgeID)
	}
	return p.Clone(), nil
}

// CompareAndSwapProgress implements ProgressStore.
func (s *MemoryStore) CompareAndSwapProgress(ctx context.Context, next model.BadgeProgress, expectedVersion int64) (model.BadgeProgress, error) {
	defer observeUpdate(time.Now())
	if strings.TrimSpace(next.PlayerID) == "" || strings.TrimSpace(next.BadgeID) == "" {
		return model.BadgeProgress{}, fmt.Errorf("%w: progress needs player and badge", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return model.BadgeProgress{}, err
	}

	key := progressKey(next.PlayerID, next.BadgeID)
	var current int64
	if cur, ok := s.progress[key]; ok {
		current = cur.Version
	}
	if current != expectedVersion {
		return model.BadgeProgress{}, fmt.Errorf("%w: %s/%s at version %d, expected %d",
			ErrProgressConflict, next.PlayerID, next.BadgeID, current, expectedVersion)
	}

	stored := next.Clone()
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = s.now().UTC()
	s.progress[key] = stored
	return stored.Clone(), nil
}

// ListProgress implements ProgressStore.
func (s *MemoryStore) ListProgress(ctx context.Context, playerID string) ([]model.BadgeProgress, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []model.BadgeProgress
	for _, p := range s.progress {
		if p.PlayerID == playerID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

// InsertAward implements AwardStore.
func (s *MemoryStore) InsertAward(ctx context.Context, rec model.AwardRecord) (bool, error) {
	defer observeUpdate(time.Now())
	if strings.TrimSpace(rec.PlayerID) == "" || strings.TrimSpace(rec.BadgeID) == "" || rec.Tier < 0 {
		return false, fmt.Errorf("%w: award needs player, badge and tier", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	key := awardKey(rec.PlayerID, rec.BadgeID, rec.Tier)
	if _, exists := s.awards[key]; exists {
		return false, nil
	}
	s.awards[key] = rec
	s.byPlayer[rec.PlayerID] = append(s.byPlayer[rec.PlayerID], key)
	return true, nil
}

// ListAwards implements AwardStore.
func (s *MemoryStore) ListAwards(ctx context.Context, playerID string) ([]model.AwardRecord, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	keys := s.byPlayer[playerID]
	out := make([]model.AwardRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.awards[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.Before(out[j].EarnedAt) })
	return out, nil
}

// SaveRound implements RoundStore.
func (s *MemoryStore) SaveRound(ctx context.Context, round model.NormalizedRound) (bool, error) {
	defer observeUpdate(time.Now())
	if strings.TrimSpace(round.RoundID) == "" {
		return false, fmt.Errorf("%w: round needs an id", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, exists := s.rounds[round.RoundID]; exists {
		return false, nil
	}
	s.rounds[round.RoundID] = cloneRound(round)
	s.roundOrder = append(s.roundOrder, round.RoundID)

	participants := make(map[string]struct{}, len(round.PerPlayerResults)+1)
	for id := range round.PerPlayerResults {
		participants[id] = struct{}{}
	}
	if round.OrganizerID != "" {
		participants[round.OrganizerID] = struct{}{}
	}
	for id := range participants {
		s.playerIndex[id] = append(s.playerIndex[id], round.RoundID)
	}
	return true, nil
}

// ScanPlayerRounds implements RoundStore. fn runs without the store lock.
func (s *MemoryStore) ScanPlayerRounds(ctx context.Context, playerID string, fn func(model.NormalizedRound) error) error {
	defer observeQuery(time.Now())
	s.mu.RLock()
	if err := s.check(ctx); err != nil {
		s.mu.RUnlock()
		return err
	}
	ids := append([]string(nil), s.playerIndex[playerID]...)
	rounds := make([]model.NormalizedRound, 0, len(ids))
	for _, id := range ids {
		rounds = append(rounds, s.rounds[id])
	}
	s.mu.RUnlock()

	for _, r := range rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// AddFriendship implements FriendStore.
func (s *MemoryStore) AddFriendship(ctx context.Context, a, b string, status FriendshipStatus) error {
	defer observeUpdate(time.Now())
	a, b, err := ValidateFriendship(a, b, status)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.link(a, b, status)
	s.link(b, a, status)
	return nil
}

func (s *MemoryStore) link(from, to string, status FriendshipStatus) {
	m := s.friends[from]
	if m == nil {
		m = make(map[string]FriendshipStatus)
		s.friends[from] = m
	}
	m[to] = status
}

// Friends implements FriendStore.
func (s *MemoryStore) Friends(ctx context.Context, playerID string) ([]string, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []string
	for id, status := range s.friends[playerID] {
		if status == FriendshipAccepted {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneRound(r model.NormalizedRound) model.NormalizedRound {
	c := r
	c.Layout = append([]model.Hole(nil), r.Layout...)
	c.PerPlayerResults = make(map[string][]model.HoleResult, len(r.PerPlayerResults))
	for id, results := range r.PerPlayerResults {
		c.PerPlayerResults[id] = append([]model.HoleResult(nil), results...)
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
