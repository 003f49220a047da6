package store

import "context"

// StoreState represents the initialization state of the datastore.
type StoreState int

const (
	StateMissing         StoreState = iota // File doesn't exist
	StateUninitialized                     // File exists but no schema
	StateVersionMismatch                   // Schema exists but wrong version
	StateReady                             // Initialized and correct version
)

func (s StoreState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUninitialized:
		return "uninitialized"
	case StateVersionMismatch:
		return "version_mismatch"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Migration is one versioned schema change.
type Migration struct {
	Version     int64
	Description string
	SQL         string
}

// Store defines the counters datastore contract.
// Implementations must be safe for concurrent use.
type Store interface {
	// Open opens the datastore connection
	Open() error

	// Close closes the datastore connection
	Close() error

	// Migrate applies every registered migration not yet recorded
	Migrate(ctx context.Context) error

	// CheckState returns the current state of the datastore
	CheckState(ctx context.Context) (StoreState, error)

	// GetSchemaVersion returns the highest applied migration version
	GetSchemaVersion(ctx context.Context) (int64, error)

	Counters
}

// Counters is the CRUD surface exposed to the UI layer.
type Counters interface {
	CreateCounter(ctx context.Context, nc NewCounter) (Counter, error)
	GetCounter(ctx context.Context, id int64) (Counter, error)
	ListCounters(ctx context.Context) ([]Counter, error)
	UpdateCounter(ctx context.Context, uc UpdateCounter) (Counter, error)
	DeleteCounter(ctx context.Context, id int64) error
	IncrementCounter(ctx context.Context, id, amount int64) (Counter, error)
	ResetCounter(ctx context.Context, id int64) (Counter, error)
}
