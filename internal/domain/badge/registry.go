package badge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

// Source loads the raw catalog.
type Source interface {
	Load(ctx context.Context) ([]Definition, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Definition, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context) ([]Definition, error) { return f(ctx) }

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	defs     []Definition
	byID     map[string]int
	LoadedAt time.Time
}

// List returns the definitions in catalog order.
func (s *Snapshot) List() []Definition {
	return append([]Definition(nil), s.defs...)
}

// Get returns the definition with id.
func (s *Snapshot) Get(id string) (Definition, error) {
	i, ok := s.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.defs[i], nil
}

// Len returns the number of definitions.
func (s *Snapshot) Len() int { return len(s.defs) }

// Index returns the catalog position of id, or -1.
func (s *Snapshot) Index(id string) int {
	if i, ok := s.byID[id]; ok {
		return i
	}
	return -1
}

// Registry serves the validated catalog. Readers see a consistent snapshot;
// Reload validates a fresh catalog before swapping it in.
type Registry struct {
	source   Source
	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	log      logger.Logger
}

// NewRegistry loads and validates the initial catalog from source.
func NewRegistry(ctx context.Context, source Source, opts ...Option) (*Registry, error) {
	r := &Registry{source: source}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("badge_registry")
	}
	if r.source == nil {
		r.source = DefaultSource()
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the current catalog view.
func (r *Registry) Snapshot() *Snapshot { return r.snapshot.Load() }

// Get returns a definition from the current snapshot.
func (r *Registry) Get(id string) (Definition, error) { return r.Snapshot().Get(id) }

// List returns the current definitions.
func (r *Registry) List() []Definition { return r.Snapshot().List() }

// Reload re-reads the source. An invalid catalog is rejected and the
// current snapshot stays in place.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	defs, err := r.source.Load(ctx)
	if err != nil {
		metrics.RecordCatalogReload("load_error")
		r.log.Error(ctx, "catalog load failed", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	if err := ValidateAll(defs); err != nil {
		metrics.RecordCatalogReload("invalid")
		r.log.Error(ctx, "catalog rejected", logger.Error(err), logger.Int("badges", len(defs)))
		return err
	}

	snap := &Snapshot{
		defs:     append([]Definition(nil), defs...),
		byID:     make(map[string]int, len(defs)),
		LoadedAt: time.Now(),
	}
	for i, d := range snap.defs {
		snap.byID[d.ID] = i
	}
	r.snapshot.Store(snap)

	metrics.RecordCatalogReload("ok")
	metrics.UpdateCatalogBadges(len(defs))
	r.log.Info(ctx, "catalog loaded", logger.Int("badges", len(defs)))
	return nil
}
