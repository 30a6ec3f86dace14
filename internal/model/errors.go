package model

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientData means a series is shorter than an operation needs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput means a series violates its shape or ordering contract.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration means a parameter is out of range.
	ErrConfiguration = errors.New("configuration error")
)

// FailureKind maps an error to the label stored with timeframe failures.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "fetch"
	}
}
