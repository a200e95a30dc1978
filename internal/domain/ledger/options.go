package ledger

import (
	"time"

	"github.com/okian/birdie/internal/domain/dedupe"
	"github.com/okian/birdie/pkg/logger"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithDeduper sets the set of award keys known to be durable.
func WithDeduper(d dedupe.Deduper) Option {
	return func(l *Ledger) {
		if d != nil {
			l.known = d
		}
	}
}

// WithClock overrides the earned-at time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}
