package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a person ID is not present in the store.
var ErrNotFound = errors.New("person not found")

// Backend persists whole snapshots. Save must be all-or-nothing: a reader
// observes either the previous snapshot or the new one, never a mix.
type Backend interface {
	// Load reads the complete snapshot. A missing store yields an empty snapshot.
	Load(ctx context.Context) (*Snapshot, error)
	// Save atomically replaces the complete snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	// Close releases the backend's resources.
	Close() error
}

// PersonReader provides read-only access to person records
type PersonReader interface {
	// NextID returns PERSON_<max+1> computed from the current keys
	NextID(ctx context.Context) string
	// GetAll returns every record, in insertion order
	GetAll(ctx context.Context) *Snapshot
	// GetByID returns one record, or false when the ID is unknown
	GetByID(ctx context.Context, personID string) (*PersonRecord, bool)
	// SearchByFace returns every person with a buffered encoding matching the given one
	SearchByFace(ctx context.Context, encoding []float64, tolerance float64) []string
	// GetFiltered returns the records passing all filters, annotated with their person ID
	GetFiltered(ctx context.Context, filter Filter) []*PersonRecord
}

// PersonWriter provides write access to person records
type PersonWriter interface {
	PersonReader

	// Upsert records a sighting, creating the person on first sight
	Upsert(ctx context.Context, in SightingInput) error
}

var _ PersonWriter = (*Store)(nil)
