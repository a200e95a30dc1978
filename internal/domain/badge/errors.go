package badge

import "errors"

// Sentinel errors for the badge catalog.
var (
	ErrInvalidDefinition = errors.New("invalid badge definition")
	ErrDuplicateID       = errors.New("duplicate badge id")
	ErrNotFound          = errors.New("badge not found")
	ErrEmptyCatalog      = errors.New("empty badge catalog")
	ErrLoadCatalog       = errors.New("failed to load badge catalog")
)
