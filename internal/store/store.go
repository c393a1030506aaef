// Package store persists the state of attempts: the random seed, answers
// given to controls and computed variable values.
package store

// Store is the interface for attempt persistence. Values are scoped by an
// attempt id and a name within the attempt.
type Store interface {
	// Get retrieves the latest value of name. The boolean is false if
	// nothing was stored.
	Get(attempt, name string) (string, bool, error)
	// Put stores a value, overwriting the latest one.
	Put(attempt, name, value string) error
	// Delete removes every value of an attempt.
	Delete(attempt string) error
	// Close releases resources.
	Close() error
}

// VersionEntry represents a single version of a persisted value.
type VersionEntry struct {
	Version int
	Value   string
	Ts      string
}

// HistoryStore extends Store with version history queries.
type HistoryStore interface {
	Store
	// GetHistory returns the versions of name, newest first. A limit of
	// zero or less returns every version.
	GetHistory(attempt, name string, limit int) ([]VersionEntry, error)
}

// Names under which a session persists its state.
const (
	KeySeed        = "seed"
	PrefixControl  = "control:"
	PrefixVariable = "variable:"
)
