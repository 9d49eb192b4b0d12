package risk

import "errors"

var (
	ErrInvalidParameters = errors.New("invalid sizing parameters")
	ErrNonFinite         = errors.New("non-finite lot size")
	ErrPanic             = errors.New("sizing panicked")
)
