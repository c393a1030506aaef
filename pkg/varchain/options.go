package varchain

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"nickandperla.net/varchain/internal/store"
)

// Option configures a Session.
type Option func(*Session)

// WithDocument loads document files, or directories of them.
func WithDocument(paths ...string) Option {
	return func(s *Session) {
		s.paths = append(s.paths, paths...)
	}
}

// WithSource adds a document given as source text. The name is used in
// diagnostics.
func WithSource(name, src string) Option {
	return func(s *Session) {
		s.sources = append(s.sources, source{name: name, src: src})
	}
}

// WithSeed seeds the random sources. Without it a stored seed is reused or
// a random one is picked.
func WithSeed(seed int64) Option {
	return func(s *Session) {
		s.seed = seed
		s.seedSet = true
	}
}

// WithAttempt sets the attempt id under which state is persisted.
func WithAttempt(id string) Option {
	return func(s *Session) {
		s.attempt = id
	}
}

// WithStore configures a custom store. The session does not close it.
func WithStore(st Store) Option {
	return func(s *Session) {
		s.setStore(st, false)
	}
}

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(s *Session) {
		st, err := store.NewSQLite(path)
		if err != nil {
			s.err = fmt.Errorf("opening store %s: %w", path, err)
			return
		}
		s.setStore(st, true)
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(s *Session) {
		s.setStore(store.NewMemory(), true)
	}
}

// setStore replaces the store, closing one the session opened itself.
func (s *Session) setStore(st Store, own bool) {
	s.closeStore()
	s.store = st
	s.ownStore = own
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithPrelude sets a custom prelude document to be loaded on startup.
// If not set, DefaultPrelude is used.
func WithPrelude(src string) Option {
	return func(s *Session) {
		s.prelude = src
	}
}

// WithNoStdlib disables loading the prelude.
func WithNoStdlib() Option {
	return func(s *Session) {
		s.noStdlib = true
	}
}

// WithChecker sets how responses are compared with expected answers. A
// variable's own tolerance overrides opts.Tolerance.
func WithChecker(opts CheckOptions) Option {
	return func(s *Session) {
		s.checkOpts = opts
	}
}

// WithLanguage sets the language of case mapping.
func WithLanguage(tag language.Tag) Option {
	return func(s *Session) {
		s.lang = tag
	}
}
