package vault

import "errors"

// Error definitions for zero-tolerance error handling. Every rejection maps
// to exactly one sentinel so callers and tests can distinguish causes with
// errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidConfig     = errors.New("vault configuration is invalid")
	ErrCapacityExceeded  = errors.New("deposit would exceed assets cap")
	ErrAmountTooSmall    = errors.New("amount too small to quote a share")
	ErrSourceFailure     = errors.New("underlying source operation failed")
	ErrTransportFailure  = errors.New("asset transport operation failed")
	ErrUnauthorized      = errors.New("actor is not authorized")
	ErrNothingToWithdraw = errors.New("vault holds no assets")
)
