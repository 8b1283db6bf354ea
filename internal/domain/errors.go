package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingFeeSchedule = errors.New("missing fee schedule")
	ErrCategoryConfig     = errors.New("invalid category config")
	ErrContextDone        = errors.New("context cancelled")
)

// ErrorKind classifies engine failures for downstream consumers. It is derived
// from the sentinel errors above, never set independently.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidInput       ErrorKind = "invalid_input"
	KindConfigurationError ErrorKind = "configuration_error"
	KindInsufficientData   ErrorKind = "insufficient_data"
)

// KindOf maps an error to its ErrorKind. Unknown errors map to KindNone so
// callers can distinguish engine-classified failures from plumbing failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrMissingFeeSchedule), errors.Is(err, ErrCategoryConfig):
		return KindConfigurationError
	default:
		return KindNone
	}
}
