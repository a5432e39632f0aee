package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingEngine     = errors.New("engine name is required")
	ErrInvalidSimilarity = errors.New("similarity must be between 0 and 1")
)
