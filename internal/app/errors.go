package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRound   = errors.New("invalid round")
	ErrDuplicateRound = errors.New("round already submitted")
	ErrBackpressure   = errors.New("round queue unavailable")
	ErrInvalidPlayer  = errors.New("invalid player id")
)
