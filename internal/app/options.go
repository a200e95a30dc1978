package service

import (
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/config"
	"github.com/okian/birdie/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies every setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		for _, opt := range []Option{
			WithWorkerCount(cfg.WorkerCount),
			WithQueueSize(cfg.EventQueueSize),
			WithDedupeSize(cfg.DedupeSize),
			WithEvaluationConcurrency(cfg.EvaluationConcurrency),
			WithHistoryTimeout(cfg.HistoryTimeout()),
			WithProgressRetryLimit(cfg.ProgressRetryLimit),
			WithStorage(cfg.StorageDriver, cfg.SQLitePath),
			WithCatalogPath(cfg.CatalogPath),
		} {
			opt(s)
		}
		if cfg.TimeZone != "" {
			if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
				s.location = loc
			}
		}
	}
}

// WithWorkerCount sets the number of round evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the round queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the round-submission and award dedupe caches.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithEvaluationConcurrency bounds the player x badge fan-out per round.
func WithEvaluationConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithHistoryTimeout caps each historical aggregation.
func WithHistoryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.historyTimeout = d
		}
	}
}

// WithProgressRetryLimit bounds progress compare-and-swap retries.
func WithProgressRetryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retryLimit = n
		}
	}
}

// WithStorage selects the storage driver and, for sqlite, its file.
func WithStorage(driver, sqlitePath string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storageDriver = driver
		}
		if sqlitePath != "" {
			s.sqlitePath = sqlitePath
		}
	}
}

// WithStore injects a ready store, overriding the storage driver.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalogPath loads the badge catalog from a YAML file instead of the
// built-in one.
func WithCatalogPath(path string) Option {
	return func(s *Service) { s.catalogPath = path }
}

// WithLocation sets the default zone for time-window badges.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
