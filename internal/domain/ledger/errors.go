package ledger

import "errors"

// Sentinel errors for award writes.
var (
	// ErrAwardConflict may be returned by a Store for a duplicate
	// (player, badge, tier). The ledger reports it as OutcomeAlreadyAwarded.
	ErrAwardConflict = errors.New("award already exists")
	ErrInvalidAward  = errors.New("invalid award request")
)
