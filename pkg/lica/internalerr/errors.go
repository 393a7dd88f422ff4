package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNoInput         = errors.New("no url or title supplied")
	ErrUnparseableURL  = errors.New("unparseable url")
	ErrUnknownCategory = errors.New("unknown category")
	ErrConflict        = errors.New("conflicting host rules")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrResourceLoad    = errors.New("reference dataset load failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
