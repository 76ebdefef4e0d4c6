// Package store provides an interface for record storage operations.
package store

import "context"

// RecordStore is an interface for record storage operations.
// Every kind has its own insertion-ordered sequence and id counter.
type RecordStore interface {
	// FindAll returns the records of every kind, keyed by kind, in insertion order.
	// Kinds without records map to an empty slice.
	FindAll(ctx context.Context) map[Kind][]Record

	// Create assigns the next id of the record's kind, appends the record and returns it.
	// Returns ErrUnknownKind if the record's kind has no sequence.
	Create(ctx context.Context, record Record) (Record, error)
}
