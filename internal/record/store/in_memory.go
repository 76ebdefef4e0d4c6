package store

import (
	"context"
	"fmt"
	"sync"

	recorderrors "github.com/abgdnv/recordstore/internal/record/errors"
)

// sequence holds the records of one kind and the id the next one will get.
type sequence struct {
	records []Record
	nextID  int
}

// inMemory implements RecordStore using one sequence per kind.
type inMemory struct {
	mu        sync.RWMutex
	sequences map[Kind]*sequence
}

// NewInMemoryStore creates a new instance of RecordStore with empty sequences and all counters at 1.
func NewInMemoryStore() RecordStore {
	kinds := Kinds()
	s := &inMemory{sequences: make(map[Kind]*sequence, len(kinds))}
	for _, k := range kinds {
		s.sequences[k] = &sequence{records: []Record{}, nextID: 1}
	}
	return s
}

// FindAll returns a copy of every sequence.
func (s *inMemory) FindAll(_ context.Context) map[Kind][]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[Kind][]Record, len(s.sequences))
	for k, seq := range s.sequences {
		list := make([]Record, len(seq.records))
		copy(list, seq.records)
		all[k] = list
	}
	return all
}

// Create stores the record under the next id of its kind.
// Id assignment, append and counter increment happen under one lock.
func (s *inMemory) Create(_ context.Context, record Record) (Record, error) {
	if record == nil {
		return nil, fmt.Errorf("create record: %w", recorderrors.ErrUnknownKind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[record.Kind()]
	if !ok {
		return nil, fmt.Errorf("create %q record: %w", record.Kind(), recorderrors.ErrUnknownKind)
	}
	created := record.withID(seq.nextID)
	seq.records = append(seq.records, created)
	seq.nextID++

	return created, nil
}
