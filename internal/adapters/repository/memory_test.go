package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/adapters/repository/storetest"
	"github.com/okian/birdie/internal/domain/model"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store { return repository.NewMemoryStore() })
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	p := model.NewBadgeProgress("p-1", "ace")
	p.TrackedThresholds = []int{0}
	stored, err := s.CompareAndSwapProgress(ctx, p, 0)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	stored.TrackedThresholds[0] = 99

	got, err := s.GetProgress(ctx, "p-1", "ace")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TrackedThresholds[0] != 0 {
		t.Errorf("caller mutation leaked into the store: %v", got.TrackedThresholds)
	}
}

func TestMemoryStoreClose(t *testing.T) {
	s := repository.NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Friends(context.Background(), "p"); !errors.Is(err, repository.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
