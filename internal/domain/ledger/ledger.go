// Package ledger turns emitted tiers into durable award records exactly once.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/birdie/internal/domain/dedupe"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

// Outcome of one award write.
type Outcome int

// Award write outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeInserted
	OutcomeAlreadyAwarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyAwarded:
		return "already_awarded"
	}
	return "failed"
}

// Store is the durable award table. InsertAward returns false when the
// (player, badge, tier) already exists.
type Store interface {
	InsertAward(ctx context.Context, rec model.AwardRecord) (bool, error)
}

// Request asks for one tier of one badge for one player.
type Request struct {
	PlayerID string
	BadgeID  string
	Tier     int
	CourseID string
	RoundID  string
}

func (r Request) key() string {
	return r.PlayerID + "|" + r.BadgeID + "|" + strconv.Itoa(r.Tier)
}

// Result is the outcome of one request in a batch.
type Result struct {
	Request Request
	Outcome Outcome
	Record  model.AwardRecord
	Err     error
}

// Ledger is the award writer.
type Ledger struct {
	store Store
	known dedupe.Deduper
	now   func() time.Time
	log   logger.Logger
}

// NewLedger constructs a ledger over store.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.known == nil {
		l.known = dedupe.NewInMemoryDeduper()
	}
	if l.log == nil {
		l.log = logger.Get().Named("ledger")
	}
	return l
}

// Insert writes one award. A tier already held is reported as
// OutcomeAlreadyAwarded, never as an error.
func (l *Ledger) Insert(ctx context.Context, req Request) (Outcome, error) {
	res := l.insert(ctx, req)
	return res.Outcome, res.Err
}

// InsertBatch writes every request. One failing request does not stop the
// others; each result carries its own outcome.
func (l *Ledger) InsertBatch(ctx context.Context, reqs []Request) []Result {
	out := make([]Result, len(reqs))
	for i, req := range reqs {
		out[i] = l.insert(ctx, req)
	}
	return out
}

func (l *Ledger) insert(ctx context.Context, req Request) Result {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.BadgeID = strings.TrimSpace(req.BadgeID)
	res := Result{Request: req}
	if req.PlayerID == "" || req.BadgeID == "" || req.Tier < 0 {
		res.Err = fmt.Errorf("%w: %+v", ErrInvalidAward, req)
		return res
	}

	key := req.key()
	if l.known.Seen(ctx, key) {
		metrics.RecordAwardAlreadyHeld()
		res.Outcome = OutcomeAlreadyAwarded
		return res
	}

	rec := model.AwardRecord{
		ID:       uuid.NewString(),
		PlayerID: req.PlayerID,
		BadgeID:  req.BadgeID,
		Tier:     req.Tier,
		CourseID: req.CourseID,
		RoundID:  req.RoundID,
		EarnedAt: l.now().UTC(),
	}
	inserted, err := l.store.InsertAward(ctx, rec)
	switch {
	case errors.Is(err, ErrAwardConflict):
		inserted, err = false, nil
	case err != nil:
		metrics.RecordAwardWriteError()
		l.log.Error(ctx, "award write failed",
			logger.String("player_id", req.PlayerID),
			logger.String("badge_id", req.BadgeID),
			logger.Int("tier", req.Tier),
			logger.Error(err))
		res.Err = fmt.Errorf("insert award %s: %w", key, err)
		return res
	}

	// Only durable keys enter the fast path.
	l.known.SeenAndRecord(ctx, key)
	if !inserted {
		metrics.RecordAwardAlreadyHeld()
		res.Outcome = OutcomeAlreadyAwarded
		return res
	}
	metrics.RecordAwardGranted(req.BadgeID)
	res.Outcome = OutcomeInserted
	res.Record = rec
	return res
}
