// Package errors provides custom error types for record-related operations.
package errors

import "errors"

// Validation failures reported by CreateRecord. Each one maps to a 400 response.
var (
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidKind      = errors.New("invalid type")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

// ErrUnknownKind is returned by the store for a record kind it has no sequence for.
var ErrUnknownKind = errors.New("unknown record kind")

