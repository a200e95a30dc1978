// Package service wires the badge engine, its stores and the round queue
// into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/birdie/internal/adapters/mq/queue"
	"github.com/okian/birdie/internal/adapters/mq/worker"
	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/adapters/repository/sqlite"
	"github.com/okian/birdie/internal/config"
	"github.com/okian/birdie/internal/domain/badge"
	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/dedupe"
	"github.com/okian/birdie/internal/domain/engine"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/ledger"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/internal/domain/normalize"
	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

// Service implements the API dependencies for the badge system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	registry *badge.Registry
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	engine   *engine.Orchestrator

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	concurrency    int
	historyTimeout time.Duration
	retryLimit     int
	storageDriver  string
	sqlitePath     string
	catalogPath    string
	location       *time.Location

	// State
	started    bool
	submitted  atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      10_000,
		dedupeSize:     100_000,
		concurrency:    16,
		historyTimeout: 2 * time.Second,
		retryLimit:     5,
		storageDriver:  config.StorageMemory,
		location:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting badge service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	var source badge.Source
	if s.catalogPath != "" {
		source = badge.FileSource(s.catalogPath)
	}
	registry, err := badge.NewRegistry(ctx, source)
	if err != nil {
		_ = s.store.Close()
		s.store = nil
		return fmt.Errorf("load badge catalog: %w", err)
	}
	s.registry = registry

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	awards := ledger.NewLedger(s.store,
		ledger.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))))
	s.engine = engine.NewOrchestrator(s.registry, s.store, awards,
		engine.WithEvaluator(condition.NewEvaluator(condition.WithLocation(s.location))),
		engine.WithAggregator(history.NewAggregator(s.store, s.store, history.WithTimeout(s.historyTimeout))),
		engine.WithRoundRecorder(s.store),
		engine.WithConcurrency(s.concurrency),
		engine.WithRetryLimit(s.retryLimit),
	)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine, worker.WithReportFunc(s.logReport))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "badge service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("badges", s.registry.Snapshot().Len()),
		logger.String("storage", s.storageDriver),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storageDriver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StorageMemory, "":
		return repository.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.storageDriver)
}

func (s *Service) logReport(ctx context.Context, roundID string, report model.EarnedBadgesReport) {
	for playerID, earned := range report {
		for _, e := range earned {
			s.logger.Info(ctx, "badge awarded",
				logger.String("round_id", roundID),
				logger.String("player_id", playerID),
				logger.String("badge_id", e.BadgeID),
				logger.Int("tier", e.Tier))
		}
	}
}

// Stop drains the queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping badge service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.started = false
	s.logger.Info(ctx, "badge service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func normalized(ev model.CompletedRoundEvent) (model.NormalizedRound, error) {
	round := normalize.Round(ev)
	if round.RoundID == "" {
		return model.NormalizedRound{}, fmt.Errorf("%w: missing roundId", ErrInvalidRound)
	}
	return round, nil
}

// SubmitRound normalizes ev and queues it for asynchronous evaluation. A
// round id already submitted is rejected with ErrDuplicateRound.
func (s *Service) SubmitRound(ctx context.Context, ev model.CompletedRoundEvent) (model.NormalizedRound, error) {
	if err := s.running(); err != nil {
		return model.NormalizedRound{}, err
	}
	round, err := normalized(ev)
	if err != nil {
		return model.NormalizedRound{}, err
	}

	if s.deduper.SeenAndRecord(ctx, round.RoundID) {
		s.duplicates.Add(1)
		metrics.RecordRoundDuplicate()
		s.logger.Debug(ctx, "duplicate round skipped", logger.String("round_id", round.RoundID))
		return round, fmt.Errorf("%w: %s", ErrDuplicateRound, round.RoundID)
	}
	if err := s.queue.Enqueue(ctx, queue.Job{Round: round}); err != nil {
		// Forget the id so the client can retry.
		s.deduper.Unrecord(ctx, round.RoundID)
		s.rejected.Add(1)
		return round, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	s.submitted.Add(1)
	return round, nil
}

// EvaluateRound normalizes and evaluates ev synchronously.
func (s *Service) EvaluateRound(ctx context.Context, ev model.CompletedRoundEvent) (model.EarnedBadgesReport, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	round, err := normalized(ev)
	if err != nil {
		return nil, err
	}
	s.deduper.SeenAndRecord(ctx, round.RoundID)
	return s.engine.EvaluateRound(ctx, round)
}

func playerID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidPlayer
	}
	return id, nil
}

// PlayerAwards lists a player's award records.
func (s *Service) PlayerAwards(ctx context.Context, id string) ([]model.AwardRecord, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	id, err := playerID(id)
	if err != nil {
		return nil, err
	}
	return s.store.ListAwards(ctx, id)
}

// PlayerProgress lists a player's badge progress.
func (s *Service) PlayerProgress(ctx context.Context, id string) ([]model.BadgeProgress, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	id, err := playerID(id)
	if err != nil {
		return nil, err
	}
	return s.store.ListProgress(ctx, id)
}

// AddFriendship records an accepted friendship between a and b.
func (s *Service) AddFriendship(ctx context.Context, a, b string) error {
	if err := s.running(); err != nil {
		return err
	}
	return s.store.AddFriendship(ctx, a, b, repository.FriendshipAccepted)
}

// Badges returns the current catalog.
func (s *Service) Badges() []badge.Definition {
	if s.running() != nil {
		return nil
	}
	return s.registry.List()
}

// Badge returns one definition from the current catalog.
func (s *Service) Badge(id string) (badge.Definition, error) {
	if err := s.running(); err != nil {
		return badge.Definition{}, err
	}
	return s.registry.Get(strings.TrimSpace(id))
}

// ReloadCatalog re-reads the badge catalog. An invalid catalog leaves the
// current one in place.
func (s *Service) ReloadCatalog(ctx context.Context) (int, error) {
	if err := s.running(); err != nil {
		return 0, err
	}
	if err := s.registry.Reload(ctx); err != nil {
		return s.registry.Snapshot().Len(), err
	}
	return s.registry.Snapshot().Len(), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"storageDriver": s.storageDriver,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["badges"] = s.registry.Snapshot().Len()
	stats["catalogLoadedAt"] = s.registry.Snapshot().LoadedAt
	stats["roundsSubmitted"] = s.submitted.Load()
	stats["roundsDuplicate"] = s.duplicates.Load()
	stats["roundsRejected"] = s.rejected.Load()
	stats["roundsProcessed"] = s.pool.Processed()
	stats["roundsFailed"] = s.pool.Failed()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["engine"] = s.engine.Stats()

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())
	return stats
}
