package engine

import "errors"

// ErrProgressWriteConflict is the soft failure of one (player, badge) pair
// whose progress update kept losing the compare-and-swap race.
var ErrProgressWriteConflict = errors.New("progress write conflict")
