package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrProgressConflict = errors.New("badge progress version conflict")
	ErrInvalidInput     = errors.New("invalid store input")
	ErrClosed           = errors.New("store closed")
)
