package tier

import "errors"

// ErrInvalidRule is returned when thresholds do not fit the badge kind.
var ErrInvalidRule = errors.New("invalid tier rule")
