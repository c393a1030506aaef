// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package variable implements derived variables: values computed on demand
// from a source expression and memoized until reset.
package variable

import (
	"fmt"
	"log/slog"

	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/eval"
)

type state int

const (
	uncomputed state = iota
	computing
	computed
)

// Variable is a derived variable owned by a single attempt. It is not safe
// for concurrent use.
type Variable struct {
	ID         string
	Expression string
	Answer     string  // Right-answer expression, same syntax as Expression
	Tolerance  float64 // Equality tolerance for double comparisons

	resolver eval.Resolver
	chains   *chain.Cache
	eval     *eval.Evaluator
	logger   *slog.Logger

	onComputed func(id, value string)

	state    state
	value    string
	compiled *chain.Chain
}

// Option configures a Variable.
type Option func(*Variable)

// WithAnswer sets the right-answer expression.
func WithAnswer(expression string) Option {
	return func(v *Variable) { v.Answer = expression }
}

// WithTolerance sets the tolerance of double comparisons.
func WithTolerance(tolerance float64) Option {
	return func(v *Variable) { v.Tolerance = tolerance }
}

// WithCache shares a compiled-chain cache between variables.
func WithCache(c *chain.Cache) Option {
	return func(v *Variable) { v.chains = c }
}

// WithEvaluator sets the chain evaluator.
func WithEvaluator(e *eval.Evaluator) Option {
	return func(v *Variable) { v.eval = e }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(v *Variable) { v.logger = l }
}

// WithOnComputed registers fn to be called each time a value is computed
// and memoized, including when the variable is computed as a dependency of
// another.
func WithOnComputed(fn func(id, value string)) Option {
	return func(v *Variable) { v.onComputed = fn }
}

// New creates an uncomputed variable that resolves references through r.
func New(id, expression string, r eval.Resolver, opts ...Option) *Variable {
	v := &Variable{
		ID:         id,
		Expression: expression,
		resolver:   r,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.chains == nil {
		v.chains = chain.NewCache()
	}
	if v.eval == nil {
		v.eval = eval.New()
	}
	if v.logger == nil {
		v.logger = slog.New(slog.DiscardHandler)
	}
	return v
}

// Value returns the memoized value, computing it first if needed. Nothing is
// cached when computation fails.
func (v *Variable) Value() (string, error) {
	switch v.state {
	case computed:
		return v.value, nil
	case computing:
		return "", &CycleError{ID: v.ID}
	}

	v.state = computing
	value, err := v.evaluate(v.Expression, false)
	if err != nil {
		v.state = uncomputed
		return "", fmt.Errorf("variable %q: %w", v.ID, err)
	}
	v.state = computed
	v.value = value
	v.logger.Debug("variable computed", "id", v.ID, "value", value)
	if v.onComputed != nil {
		v.onComputed(v.ID, value)
	}
	return value, nil
}

// Reset discards the memoized value. The next Value call recomputes it.
func (v *Variable) Reset() {
	if v.state == computing {
		return
	}
	v.state = uncomputed
	v.value = ""
}

// Computed returns true if a value is memoized.
func (v *Variable) Computed() bool {
	return v.state == computed
}

// Dependencies returns the identifiers Expression reads: the base first,
// then the references of its chain in order of first use. Literals have
// none.
func (v *Variable) Dependencies() ([]string, error) {
	expr, err := ParseExpression(v.Expression)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.ID, err)
	}
	if expr.Literal {
		return nil, nil
	}
	deps := []string{expr.Text}
	if !expr.HasChain {
		return deps, nil
	}
	compiled, err := v.compile(expr.Chain)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.ID, err)
	}
	for _, ref := range compiled.References() {
		if ref != expr.Text {
			deps = append(deps, ref)
		}
	}
	return deps, nil
}

// AnswerValue evaluates the right-answer expression. Unlike Expression, the
// answer may name the variable itself as its base, which yields the
// variable's own value. The result is not memoized.
func (v *Variable) AnswerValue() (string, error) {
	if v.Answer == "" {
		return v.Value()
	}
	value, err := v.evaluate(v.Answer, true)
	if err != nil {
		return "", fmt.Errorf("variable %q answer: %w", v.ID, err)
	}
	return value, nil
}

// evaluate computes a source expression on behalf of v.
func (v *Variable) evaluate(src string, allowSelf bool) (string, error) {
	expr, err := ParseExpression(src)
	if err != nil {
		return "", err
	}
	if expr.Literal {
		return expr.Text, nil
	}

	r := newMemo(v.resolver)
	var base string
	if expr.Text == v.ID {
		if !allowSelf {
			return "", &SelfReferenceError{ID: v.ID}
		}
		if base, err = v.Value(); err != nil {
			return "", err
		}
	} else if base, err = r.Resolve(expr.Text); err != nil {
		return "", eval.ReferenceError(expr.Text, err)
	}

	if !expr.HasChain {
		return base, nil
	}

	compiled, err := v.compile(expr.Chain)
	if err != nil {
		return "", err
	}
	return v.eval.Apply(compiled, eval.Context{
		SelfID:    v.ID,
		Base:      base,
		Tolerance: v.Tolerance,
	}, r)
}

// compile returns the chain for raw, reusing the last one when unchanged.
func (v *Variable) compile(raw string) (*chain.Chain, error) {
	if v.compiled != nil && v.compiled.Raw == raw {
		return v.compiled, nil
	}
	compiled, err := v.chains.Compile(raw)
	if err != nil {
		return nil, err
	}
	if raw == v.exprChain() {
		v.compiled = compiled
	}
	return compiled, nil
}

// exprChain returns the raw chain of Expression, if any.
func (v *Variable) exprChain() string {
	expr, err := ParseExpression(v.Expression)
	if err != nil || !expr.HasChain {
		return ""
	}
	return expr.Chain
}

// memo reads each identifier from the underlying resolver at most once.
type memo struct {
	r    eval.Resolver
	seen map[string]string
}

func newMemo(r eval.Resolver) *memo {
	return &memo{r: r, seen: make(map[string]string)}
}

func (m *memo) Resolve(id string) (string, error) {
	if v, ok := m.seen[id]; ok {
		return v, nil
	}
	if m.r == nil {
		return "", eval.ErrNotFound
	}
	v, err := m.r.Resolve(id)
	if err != nil {
		return "", err
	}
	m.seen[id] = v
	return v, nil
}
