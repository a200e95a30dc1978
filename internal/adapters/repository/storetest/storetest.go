// Package storetest holds the behavioural contract every repository.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/domain/model"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

// Run exercises the full Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("progress", func(t *testing.T) { testProgress(t, newStore(t)) })
	t.Run("progress_concurrent_cas", func(t *testing.T) { testConcurrentCAS(t, newStore(t)) })
	t.Run("awards", func(t *testing.T) { testAwards(t, newStore(t)) })
	t.Run("rounds", func(t *testing.T) { testRounds(t, newStore(t)) })
	t.Run("friends", func(t *testing.T) { testFriends(t, newStore(t)) })
	t.Run("cancelled_context", func(t *testing.T) { testCancelled(t, newStore(t)) })
}

// Round builds a one-hole round with the given strokes per player.
func Round(id, organizer string, strokes map[string]int, at time.Time) model.NormalizedRound {
	per := make(map[string][]model.HoleResult, len(strokes))
	for p, s := range strokes {
		per[p] = []model.HoleResult{{HoleNumber: 1, Strokes: s, Timestamp: at}}
	}
	return model.NormalizedRound{
		RoundID:          id,
		CourseID:         "course-1",
		OrganizerID:      organizer,
		Layout:           []model.Hole{{Number: 1, Par: 3}},
		PerPlayerResults: per,
	}
}

func testProgress(t *testing.T, s repository.Store) {
	ctx := context.Background()
	defer s.Close()

	if _, err := s.GetProgress(ctx, "p-1", "ace"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := model.NewBadgeProgress("p-1", "ace")
	p.CurrentTier = 0
	p.TotalProgress = 1
	p.TrackedThresholds = []int{0}
	p.LastUpdatedRoundID = "r-1"
	p.AppliedRoundIDs = []string{"r-1"}

	stored, err := s.CompareAndSwapProgress(ctx, p, 0)
	if err != nil {
		t.Fatalf("create progress: %v", err)
	}
	if stored.Version != 1 {
		t.Errorf("expected version 1, got %d", stored.Version)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	if _, err := s.CompareAndSwapProgress(ctx, p, 0); !errors.Is(err, repository.ErrProgressConflict) {
		t.Fatalf("expected conflict on stale create, got %v", err)
	}

	got, err := s.GetProgress(ctx, "p-1", "ace")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if got.CurrentTier != 0 || got.TotalProgress != 1 || got.LastUpdatedRoundID != "r-1" || got.Version != 1 {
		t.Errorf("unexpected progress %+v", got)
	}
	if len(got.TrackedThresholds) != 1 || got.TrackedThresholds[0] != 0 {
		t.Errorf("unexpected tracked thresholds %v", got.TrackedThresholds)
	}
	if !got.Applied("r-1") || len(got.AppliedRoundIDs) != 1 {
		t.Errorf("unexpected applied rounds %v", got.AppliedRoundIDs)
	}

	got.TotalProgress = 2
	updated, err := s.CompareAndSwapProgress(ctx, got, got.Version)
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}

	other := model.NewBadgeProgress("p-1", "turkey")
	if _, err := s.CompareAndSwapProgress(ctx, other, 0); err != nil {
		t.Fatalf("create second progress: %v", err)
	}
	if _, err := s.CompareAndSwapProgress(ctx, model.NewBadgeProgress("p-2", "ace"), 0); err != nil {
		t.Fatalf("create other player progress: %v", err)
	}

	list, err := s.ListProgress(ctx, "p-1")
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(list) != 2 || list[0].BadgeID != "ace" || list[1].BadgeID != "turkey" {
		t.Errorf("unexpected progress list %+v", list)
	}
	if list[1].CurrentTier != model.UnearnedTier {
		t.Errorf("expected unearned tier, got %d", list[1].CurrentTier)
	}

	if _, err := s.CompareAndSwapProgress(ctx, model.BadgeProgress{BadgeID: "ace"}, 0); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func testConcurrentCAS(t *testing.T, s repository.Store) {
	ctx := context.Background()
	defer s.Close()

	const writers = 8
	const incrementsEach = 10

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < incrementsEach; i++ {
				for {
					cur, err := s.GetProgress(ctx, "p-1", "ace_collector")
					var version int64
					switch {
					case errors.Is(err, repository.ErrNotFound):
						cur = model.NewBadgeProgress("p-1", "ace_collector")
					case err != nil:
						errs <- err
						return
					default:
						version = cur.Version
					}
					cur.TotalProgress++
					_, err = s.CompareAndSwapProgress(ctx, cur, version)
					if errors.Is(err, repository.ErrProgressConflict) {
						continue
					}
					if err != nil {
						errs <- err
						return
					}
					break
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent writer failed: %v", err)
	}

	got, err := s.GetProgress(ctx, "p-1", "ace_collector")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if got.TotalProgress != writers*incrementsEach {
		t.Errorf("expected %d increments, got %d", writers*incrementsEach, got.TotalProgress)
	}
	if got.Version != writers*incrementsEach {
		t.Errorf("expected version %d, got %d", writers*incrementsEach, got.Version)
	}
}

func testAwards(t *testing.T, s repository.Store) {
	ctx := context.Background()
	defer s.Close()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := model.AwardRecord{ID: "a-1", PlayerID: "p-1", BadgeID: "turkey", Tier: 0, CourseID: "c", RoundID: "r-1", EarnedAt: base}

	inserted, err := s.InsertAward(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	dup := rec
	dup.ID = "a-2"
	dup.RoundID = "r-2"
	inserted, err = s.InsertAward(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if inserted {
		t.Fatal("duplicate (player, badge, tier) must not insert")
	}

	next := rec
	next.ID = "a-3"
	next.Tier = 1
	next.EarnedAt = base.Add(time.Hour)
	if ok, err := s.InsertAward(ctx, next); err != nil || !ok {
		t.Fatalf("tier 1 insert: inserted=%v err=%v", ok, err)
	}

	awards, err := s.ListAwards(ctx, "p-1")
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(awards))
	}
	if awards[0].Tier != 0 || awards[0].RoundID != "r-1" || awards[1].Tier != 1 {
		t.Errorf("unexpected awards %+v", awards)
	}
	if !awards[0].EarnedAt.Equal(base) {
		t.Errorf("earned at not preserved: %v", awards[0].EarnedAt)
	}

	if _, err := s.InsertAward(ctx, model.AwardRecord{PlayerID: "p-1", BadgeID: "x", Tier: -1}); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative tier, got %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InsertAward(ctx, model.AwardRecord{PlayerID: "p-2", BadgeID: "ace", Tier: 0, EarnedAt: base})
			if err != nil {
				t.Errorf("concurrent insert: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one concurrent insert to win, got %d", wins)
	}
}

func testRounds(t *testing.T, s repository.Store) {
	ctx := context.Background()
	defer s.Close()

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	rounds := []model.NormalizedRound{
		Round("r-1", "", map[string]int{"me": 4, "ann": 3}, at),
		Round("r-2", "me", map[string]int{"ann": 2, "bob": 5}, at.Add(time.Hour)),
		Round("r-3", "", map[string]int{"bob": 3}, at.Add(2*time.Hour)),
	}
	for _, r := range rounds {
		ok, err := s.SaveRound(ctx, r)
		if err != nil || !ok {
			t.Fatalf("save %s: ok=%v err=%v", r.RoundID, ok, err)
		}
	}
	if ok, err := s.SaveRound(ctx, rounds[0]); err != nil || ok {
		t.Fatalf("duplicate save should report false: ok=%v err=%v", ok, err)
	}

	var seen []string
	err := s.ScanPlayerRounds(ctx, "me", func(r model.NormalizedRound) error {
		seen = append(seen, r.RoundID)
		if r.RoundID == "r-1" {
			if got := r.PerPlayerResults["ann"]; len(got) != 1 || got[0].Strokes != 3 {
				t.Errorf("results not preserved: %+v", r.PerPlayerResults)
			}
			if len(r.Layout) != 1 || r.Layout[0].Par != 3 {
				t.Errorf("layout not preserved: %+v", r.Layout)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != 2 || seen[0] != "r-1" || seen[1] != "r-2" {
		t.Errorf("expected rounds [r-1 r-2] for me, got %v", seen)
	}

	stop := errors.New("stop")
	calls := 0
	err = s.ScanPlayerRounds(ctx, "bob", func(model.NormalizedRound) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("expected scan to stop after first callback error, calls=%d err=%v", calls, err)
	}

	if _, err := s.SaveRound(ctx, model.NormalizedRound{}); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty round id, got %v", err)
	}
}

func testFriends(t *testing.T, s repository.Store) {
	ctx := context.Background()
	defer s.Close()

	if err := s.AddFriendship(ctx, "me", "bob", repository.FriendshipAccepted); err != nil {
		t.Fatalf("add friendship: %v", err)
	}
	if err := s.AddFriendship(ctx, "ann", "me", repository.FriendshipAccepted); err != nil {
		t.Fatalf("add friendship: %v", err)
	}
	if err := s.AddFriendship(ctx, "me", "zed", repository.FriendshipPending); err != nil {
		t.Fatalf("add pending friendship: %v", err)
	}

	friends, err := s.Friends(ctx, "me")
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(friends) != 2 || friends[0] != "ann" || friends[1] != "bob" {
		t.Errorf("expected [ann bob], got %v", friends)
	}

	back, err := s.Friends(ctx, "bob")
	if err != nil || len(back) != 1 || back[0] != "me" {
		t.Errorf("friendship must be symmetric, got %v (%v)", back, err)
	}

	if err := s.AddFriendship(ctx, "me", "zed", repository.FriendshipAccepted); err != nil {
		t.Fatalf("accept friendship: %v", err)
	}
	friends, _ = s.Friends(ctx, "zed")
	if len(friends) != 1 || friends[0] != "me" {
		t.Errorf("accepted friendship should be visible, got %v", friends)
	}

	if err := s.AddFriendship(ctx, "me", "me", repository.FriendshipAccepted); !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for self friendship, got %v", err)
	}
}

func testCancelled(t *testing.T, s repository.Store) {
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.GetProgress(ctx, "p", "b"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetProgress: expected context.Canceled, got %v", err)
	}
	if _, err := s.InsertAward(ctx, model.AwardRecord{PlayerID: "p", BadgeID: "b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("InsertAward: expected context.Canceled, got %v", err)
	}
	if err := s.ScanPlayerRounds(ctx, "p", func(model.NormalizedRound) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("ScanPlayerRounds: expected context.Canceled, got %v", err)
	}
}
