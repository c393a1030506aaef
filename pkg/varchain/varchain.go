// Package varchain computes derived variables of exercise documents.
//
// A Session loads a document, draws its random sources and computes each
// variable on demand from its source expression. With a store the seed,
// the answers given to controls and the computed values are persisted per
// attempt, so a resumed attempt sees the same values.
package varchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"golang.org/x/text/language"

	"nickandperla.net/varchain/internal/answer"
	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/ctxlog"
	"nickandperla.net/varchain/internal/document"
	"nickandperla.net/varchain/internal/eval"
	"nickandperla.net/varchain/internal/stdlib"
	"nickandperla.net/varchain/internal/store"
	"nickandperla.net/varchain/internal/variable"
)

// DefaultAttempt is the attempt id used when WithAttempt is not given.
const DefaultAttempt = "default"

// EvalID is the variable id of expressions passed to Session.Eval.
const EvalID = "<eval>"

// Error types returned by a Session.
type (
	SyntaxError              = chain.SyntaxError
	SelfReferenceError       = variable.SelfReferenceError
	CycleError               = variable.CycleError
	UnresolvedReferenceError = variable.UnresolvedReferenceError
)

type (
	// Store persists attempts. See WithStore.
	Store = store.Store
	// HistoryEntry is one stored version of a variable value.
	HistoryEntry = store.VersionEntry
	// Verdict is the outcome of Check.
	Verdict = answer.Verdict
	// CheckOptions configures how Check compares responses. See WithChecker.
	CheckOptions = answer.Options
	// Mode names how a response was compared.
	Mode = answer.Mode
)

// Comparison modes reported in a Verdict.
const (
	ModeNumber   = answer.ModeNumber
	ModeRegex    = answer.ModeRegex
	ModeExact    = answer.ModeExact
	ModeCaseFold = answer.ModeCaseFold
)

// ErrNotFound is returned for identifiers no entity declares.
var ErrNotFound = eval.ErrNotFound

// ErrNoHistory is returned by History when the store keeps no versions.
var ErrNoHistory = errors.New("store does not keep history")

type source struct {
	name string
	src  string
}

// Session is one attempt at a document. Its methods are safe for concurrent
// use; computations are serialized.
type Session struct {
	mu sync.Mutex

	ns        *document.Namespace
	chains    *chain.Cache
	evaluator *eval.Evaluator
	checker   *answer.Matcher

	store    Store
	ownStore bool
	attempt  string
	logger   *slog.Logger

	paths     []string
	sources   []source
	prelude   string
	noStdlib  bool
	seed      int64
	seedSet   bool
	checkOpts CheckOptions
	lang      language.Tag
	err       error

	persistErr error
}

// New loads the configured documents and starts or resumes an attempt.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		attempt: DefaultAttempt,
		lang:    language.Und,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		s.closeStore()
		return nil, s.err
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	doc, err := s.document()
	if err != nil {
		s.closeStore()
		return nil, err
	}

	seed, err := s.initialSeed()
	if err != nil {
		s.closeStore()
		return nil, err
	}

	s.chains = chain.NewCache()
	s.evaluator = eval.New(eval.WithLanguage(s.lang))
	s.checker = answer.New(s.checkOpts)
	s.ns, err = document.NewNamespace(doc,
		document.WithSeed(seed),
		document.WithCache(s.chains),
		document.WithEvaluator(s.evaluator),
		document.WithLogger(s.logger),
		document.WithOnComputed(s.persist),
	)
	if err != nil {
		s.closeStore()
		return nil, err
	}

	if err := s.restore(); err != nil {
		s.closeStore()
		return nil, err
	}
	s.logger.Debug("session started", "attempt", s.attempt, "seed", s.ns.Seed(),
		"variables", len(s.ns.VariableIDs()))
	return s, nil
}

// document merges the configured files and sources with the prelude. The
// user's declarations shadow prelude entities of the same id.
func (s *Session) document() (*document.Document, error) {
	doc := &document.Document{}
	if len(s.paths) > 0 {
		ctx := ctxlog.WithLogger(context.Background(), s.logger)
		loaded, err := document.Load(ctx, s.paths...)
		if err != nil {
			return nil, err
		}
		doc.Merge(loaded)
	}
	for _, src := range s.sources {
		parsed, err := document.Parse(src.name, []byte(src.src))
		if err != nil {
			return nil, err
		}
		doc.Merge(parsed)
	}

	if s.noStdlib {
		return doc, nil
	}
	prelude := s.prelude
	if prelude == "" {
		prelude = DefaultPrelude
	}
	pre, err := document.Parse(stdlib.PreludeFile, []byte(prelude))
	if err != nil {
		return nil, fmt.Errorf("loading prelude: %w", err)
	}
	doc.Merge(pre.Without(doc.Has))
	return doc, nil
}

// initialSeed returns the configured seed, else the stored one. Zero lets
// the namespace pick a seed.
func (s *Session) initialSeed() (int64, error) {
	if s.seedSet || s.store == nil {
		return s.seed, nil
	}
	v, ok, err := s.store.Get(s.attempt, store.KeySeed)
	if err != nil {
		return 0, fmt.Errorf("reading seed: %w", err)
	}
	if !ok {
		return 0, nil
	}
	seed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stored seed %q: %w", v, err)
	}
	return seed, nil
}

// restore applies stored control answers and persists the seed.
func (s *Session) restore() error {
	if s.store == nil {
		return nil
	}
	for id := range s.ns.Controls() {
		v, ok, err := s.store.Get(s.attempt, store.PrefixControl+id)
		if err != nil {
			return fmt.Errorf("reading control %q: %w", id, err)
		}
		if ok {
			if err := s.ns.SetControl(id, v); err != nil {
				return err
			}
		}
	}
	s.ns.ResetVariables()
	return s.putSeed()
}

func (s *Session) putSeed() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Put(s.attempt, store.KeySeed, strconv.FormatInt(s.ns.Seed(), 10)); err != nil {
		return fmt.Errorf("saving seed: %w", err)
	}
	return nil
}

// Value returns the value of the entity named id, computing it if it is a
// variable.
func (s *Session) Value(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value(id)
}

func (s *Session) value(id string) (string, error) {
	v, ok := s.ns.Variable(id)
	if !ok {
		value, err := s.ns.Resolve(id)
		return value, s.persisted(err)
	}
	s.logger.Debug("variable read", "id", id, "memoized", v.Computed())
	value, err := v.Value()
	return value, s.persisted(err)
}

// persist stores a computed variable value. It runs for dependencies too,
// so every value computed in an attempt reaches the store.
func (s *Session) persist(id, value string) {
	if s.store == nil || s.persistErr != nil {
		return
	}
	if err := s.store.Put(s.attempt, store.PrefixVariable+id, value); err != nil {
		s.persistErr = fmt.Errorf("saving variable %q: %w", id, err)
	}
}

// persisted returns err, else the first store failure since the last call.
func (s *Session) persisted(err error) error {
	perr := s.persistErr
	s.persistErr = nil
	if err != nil {
		return err
	}
	return perr
}

// Values computes every variable. It stops at the first error.
func (s *Session) Values() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for _, id := range s.ns.VariableIDs() {
		v, err := s.value(id)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// VariableIDs returns the variable ids in declaration order.
func (s *Session) VariableIDs() []string {
	return s.ns.VariableIDs()
}

// Reset starts a new attempt: random sources are redrawn from a new seed,
// controls return to their defaults and stored state is discarded.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ns.Reset()
	if s.store != nil {
		if err := s.store.Delete(s.attempt); err != nil {
			return fmt.Errorf("deleting attempt %q: %w", s.attempt, err)
		}
	}
	s.logger.Debug("attempt reset", "attempt", s.attempt, "seed", s.ns.Seed())
	return s.putSeed()
}

// ResetValue discards the memoized value of a variable. Variables computed
// from it keep their values until ResetValues.
func (s *Session) ResetValue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ns.Variable(id)
	if !ok {
		return fmt.Errorf("variable %q: %w", id, ErrNotFound)
	}
	v.Reset()
	return nil
}

// ResetValues discards every memoized variable value.
func (s *Session) ResetValues() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ns.ResetVariables()
}

// SetAnswer records the value of a control and invalidates every variable.
func (s *Session) SetAnswer(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ns.SetControl(id, value); err != nil {
		return err
	}
	s.ns.ResetVariables()
	if s.store != nil {
		if err := s.store.Put(s.attempt, store.PrefixControl+id, value); err != nil {
			return fmt.Errorf("saving control %q: %w", id, err)
		}
	}
	return nil
}

// Answers returns the control ids with their current values.
func (s *Session) Answers() map[string]string {
	return s.ns.Controls()
}

// SetMarker moves a marker and invalidates every variable.
func (s *Session) SetMarker(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ns.SetMarker(id, x, y); err != nil {
		return err
	}
	s.ns.ResetVariables()
	return nil
}

// Eval computes an ad-hoc source expression against the session's
// entities. The result is not memoized or persisted.
func (s *Session) Eval(expression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := variable.New(EvalID, expression, s.ns,
		variable.WithCache(s.chains),
		variable.WithEvaluator(s.evaluator),
		variable.WithLogger(s.logger),
	)
	value, err := v.Value()
	return value, s.persisted(err)
}

// Dependencies returns the identifiers the expression of a variable reads,
// its base first.
func (s *Session) Dependencies(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ns.Variable(id)
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", id, ErrNotFound)
	}
	return v.Dependencies()
}

// Check compares a response with the right answer of a variable, within
// the variable's tolerance when both are numbers.
func (s *Session) Check(id, response string) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ns.Variable(id)
	if !ok {
		return Verdict{}, fmt.Errorf("variable %q: %w", id, ErrNotFound)
	}
	expected, err := v.AnswerValue()
	if err = s.persisted(err); err != nil {
		return Verdict{}, err
	}
	checker := s.checker
	if v.Tolerance > 0 {
		checker = checker.WithTolerance(v.Tolerance)
	}
	verdict, err := checker.Verdict(response, expected)
	if err != nil {
		return Verdict{}, fmt.Errorf("checking %q: %w", id, err)
	}
	s.logger.Debug("answer checked", "variable", id, "correct", verdict.Correct, "mode", verdict.Mode)
	return verdict, nil
}

// JSON returns every variable value as a JSON object.
func (s *Session) JSON() ([]byte, error) {
	values, err := s.Values()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []byte("{}"), nil
	}
	attrs := make(map[string]cty.Value, len(values))
	for id, v := range values {
		attrs[id] = cty.StringVal(v)
	}
	obj := cty.ObjectVal(attrs)
	return ctyjson.Marshal(obj, obj.Type())
}

// History returns the stored versions of a variable, newest first.
func (s *Session) History(id string, limit int) ([]HistoryEntry, error) {
	hs, ok := s.store.(store.HistoryStore)
	if !ok {
		return nil, ErrNoHistory
	}
	return hs.GetHistory(s.attempt, store.PrefixVariable+id, limit)
}

// Seed returns the seed of the current random draws.
func (s *Session) Seed() int64 {
	return s.ns.Seed()
}

// Attempt returns the attempt id.
func (s *Session) Attempt() string {
	return s.attempt
}

// CacheStats reports hits and misses of the compiled-chain cache.
func (s *Session) CacheStats() (hits, misses int) {
	return s.chains.Stats()
}

// Close releases the store if the session opened it.
func (s *Session) Close() error {
	return s.closeStore()
}

func (s *Session) closeStore() error {
	if s.store != nil && s.ownStore {
		return s.store.Close()
	}
	return nil
}
