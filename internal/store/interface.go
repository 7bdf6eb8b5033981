package store

import "context"

// StoreState represents how closely the live schema matches the catalogue.
type StoreState int

const (
	StateMissing StoreState = iota // No marketplace table exists
	StatePartial                   // Some tables, columns or indexes differ
	StateReady                     // Every table, column and index is present
)

func (s StoreState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StatePartial:
		return "partial"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Store defines the marketplace datastore contract.
// A Store holds a single connection and is not safe for concurrent use.
type Store interface {
	// Open opens the datastore connection
	Open(ctx context.Context) error

	// Close releases the connection; safe to call more than once
	Close(ctx context.Context) error

	// Reset drops every marketplace table and recreates the schema.
	// All existing rows in those tables are destroyed.
	Reset(ctx context.Context) error

	// Inspect compares the live schema against the catalogue
	Inspect(ctx context.Context) (*Inspection, error)
}
