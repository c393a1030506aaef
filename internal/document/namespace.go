// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package document

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v6"

	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/escape"
	"nickandperla.net/varchain/internal/eval"
	"nickandperla.net/varchain/internal/token"
	"nickandperla.net/varchain/internal/variable"
)

// Namespace resolves identifiers against the entities of one attempt at a
// document. Entity lookups are safe for concurrent use; computing variables
// is not, so callers serialize Value and Resolve calls.
type Namespace struct {
	mu sync.RWMutex

	constants map[string]string
	randoms   map[string]*randomSource
	replaces  map[string]*replaceSource
	variables map[string]*variable.Variable
	controls  map[string]*controlValue
	markers   map[string]*Marker

	order []string // Variable ids in declaration order
	draws []drawer // Random and replacement sources in declaration order

	seed   int64
	faker  *gofakeit.Faker
	chains *chain.Cache
	eval   *eval.Evaluator
	logger *slog.Logger

	onComputed func(id, value string)
}

type randomSource struct {
	spec  Random
	value string
}

type replaceSource struct {
	spec  Replace
	index int // Drawn option, used when spec.Select is empty
}

type controlValue struct {
	spec  Control
	value string
	set   bool
}

type drawer interface {
	redraw(f *gofakeit.Faker)
}

func (r *randomSource) redraw(f *gofakeit.Faker)  { r.value = r.spec.draw(f) }
func (r *replaceSource) redraw(f *gofakeit.Faker) { r.index = pick(f, len(r.spec.Options)) }

// Option configures a Namespace.
type Option func(*Namespace)

// WithSeed seeds the random sources. Zero, the default, picks a random seed.
func WithSeed(seed int64) Option {
	return func(n *Namespace) { n.seed = seed }
}

// WithCache shares a compiled-chain cache with the namespace's variables.
func WithCache(c *chain.Cache) Option {
	return func(n *Namespace) { n.chains = c }
}

// WithEvaluator sets the chain evaluator of the namespace's variables.
func WithEvaluator(e *eval.Evaluator) Option {
	return func(n *Namespace) { n.eval = e }
}

// WithLogger sets the logger passed to every variable.
func WithLogger(l *slog.Logger) Option {
	return func(n *Namespace) { n.logger = l }
}

// WithOnComputed registers fn with every variable. It runs each time a
// variable value is computed, whether requested directly or as a dependency.
func WithOnComputed(fn func(id, value string)) Option {
	return func(n *Namespace) { n.onComputed = fn }
}

// NewNamespace builds the entities of doc and draws every random source.
func NewNamespace(doc *Document, opts ...Option) (*Namespace, error) {
	if diags := doc.Validate(); diags.HasErrors() {
		return nil, fmt.Errorf("invalid document: %w", diags)
	}

	n := &Namespace{
		constants: make(map[string]string),
		randoms:   make(map[string]*randomSource),
		replaces:  make(map[string]*replaceSource),
		variables: make(map[string]*variable.Variable),
		controls:  make(map[string]*controlValue),
		markers:   make(map[string]*Marker),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.chains == nil {
		n.chains = chain.NewCache()
	}
	if n.eval == nil {
		n.eval = eval.New()
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}

	for _, c := range doc.Constants {
		n.constants[c.ID] = c.Value
	}
	for _, r := range doc.Randoms {
		src := &randomSource{spec: r}
		n.randoms[r.ID] = src
		n.draws = append(n.draws, src)
	}
	for _, r := range doc.Replaces {
		src := &replaceSource{spec: r}
		n.replaces[r.ID] = src
		n.draws = append(n.draws, src)
	}
	for _, c := range doc.Controls {
		n.controls[c.ID] = &controlValue{spec: c}
	}
	for i := range doc.Markers {
		m := doc.Markers[i]
		n.markers[m.ID] = &m
	}
	for _, v := range doc.Variables {
		n.variables[v.ID] = variable.New(v.ID, v.Expression, n,
			variable.WithAnswer(v.Answer),
			variable.WithTolerance(v.Tolerance),
			variable.WithCache(n.chains),
			variable.WithEvaluator(n.eval),
			variable.WithLogger(n.logger),
			variable.WithOnComputed(n.onComputed),
		)
		n.order = append(n.order, v.ID)
	}

	n.Reseed(n.seed)
	return n, nil
}

// Resolve returns the current value of the entity named id.
func (n *Namespace) Resolve(id string) (string, error) {
	n.mu.RLock()
	if v, ok := n.variables[id]; ok {
		n.mu.RUnlock()
		return v.Value()
	}
	defer n.mu.RUnlock()

	if s, err := n.lookup(id); err == nil {
		return s, nil
	}
	if r, ok := n.replaces[id]; ok {
		return n.replacement(r)
	}
	if dot := strings.LastIndexByte(id, '.'); dot > 0 {
		if m, found := n.markers[id[:dot]]; found {
			switch id[dot+1:] {
			case "x":
				return eval.FormatDouble(m.X), nil
			case "y":
				return eval.FormatDouble(m.Y), nil
			}
		}
	}
	return "", eval.ErrNotFound
}

// replacement picks the option of r. Called with n.mu held for reading.
func (n *Namespace) replacement(r *replaceSource) (string, error) {
	if r.spec.Select == "" {
		return r.spec.Options[r.index], nil
	}

	var sel string
	if v, ok := n.variables[r.spec.Select]; ok {
		n.mu.RUnlock()
		s, err := v.Value()
		n.mu.RLock()
		if err != nil {
			return "", eval.ReferenceError(r.spec.Select, err)
		}
		sel = s
	} else {
		s, err := n.lookup(r.spec.Select)
		if err != nil {
			return "", eval.ReferenceError(r.spec.Select, err)
		}
		sel = s
	}

	i, ok := eval.ParseInt(sel)
	if !ok || i < 0 || int(i) >= len(r.spec.Options) {
		return "", fmt.Errorf("replace %q: selector %q has value %q, want an index below %d",
			r.spec.ID, r.spec.Select, sel, len(r.spec.Options))
	}
	return r.spec.Options[i], nil
}

// lookup resolves literals, constants, random sources and controls.
// Called with n.mu held for reading.
func (n *Namespace) lookup(id string) (string, error) {
	if strings.HasPrefix(id, string(token.RuneReference)) {
		return escape.Decode(id[1:]), nil
	}
	if s, ok := n.constants[id]; ok {
		return s, nil
	}
	if r, ok := n.randoms[id]; ok {
		return r.value, nil
	}
	if c, ok := n.controls[id]; ok {
		if c.set {
			return c.value, nil
		}
		return c.spec.Default, nil
	}
	return "", eval.ErrNotFound
}

// Variable returns the derived variable named id.
func (n *Namespace) Variable(id string) (*variable.Variable, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.variables[id]
	return v, ok
}

// VariableIDs returns the variable ids in declaration order.
func (n *Namespace) VariableIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string(nil), n.order...)
}

// Controls returns the control ids with their current values.
func (n *Namespace) Controls() map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]string, len(n.controls))
	for id, c := range n.controls {
		if c.set {
			out[id] = c.value
		} else {
			out[id] = c.spec.Default
		}
	}
	return out
}

// SetControl sets the value of a control. It does not reset variables.
func (n *Namespace) SetControl(id, value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.controls[id]
	if !ok {
		return fmt.Errorf("control %q: %w", id, eval.ErrNotFound)
	}
	c.value = value
	c.set = true
	return nil
}

// SetMarker moves a marker. It does not reset variables.
func (n *Namespace) SetMarker(id string, x, y float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.markers[id]
	if !ok {
		return fmt.Errorf("marker %q: %w", id, eval.ErrNotFound)
	}
	m.X, m.Y = x, y
	return nil
}

// Seed returns the seed of the current random draws.
func (n *Namespace) Seed() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.seed
}

// Reseed restarts the random generator from seed, redraws every random
// source and resets every variable. A zero seed picks a random one.
func (n *Namespace) Reseed(seed int64) {
	for seed == 0 {
		seed = gofakeit.New(0).Int64()
	}
	n.mu.Lock()
	n.seed = seed
	n.faker = gofakeit.New(seed)
	n.redraw()
	n.mu.Unlock()
	n.ResetVariables()
}

// Reset starts a new attempt. A new seed is drawn from the current
// generator, so Seed always reproduces the current random values. Controls
// return to their defaults.
func (n *Namespace) Reset() {
	n.mu.Lock()
	seed := n.faker.Int64()
	for _, c := range n.controls {
		c.value, c.set = "", false
	}
	n.mu.Unlock()
	n.Reseed(seed)
}

func (n *Namespace) redraw() {
	for _, d := range n.draws {
		d.redraw(n.faker)
	}
}

// ResetVariables discards every memoized variable value.
func (n *Namespace) ResetVariables() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, id := range n.order {
		n.variables[id].Reset()
	}
	n.logger.Debug("variables reset", "count", len(n.order))
}
