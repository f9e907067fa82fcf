package service

import "errors"

// Sentinel errors for service-layer error classification.
var (
	// ErrValidation indicates input validation failure (HTTP 400).
	ErrValidation = errors.New("validation error")
)
