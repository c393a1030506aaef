// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval applies compiled transformation chains to string values.
package eval

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"nickandperla.net/varchain/internal/chain"
)

// ErrNotFound is returned by a Resolver for identifiers it does not know.
var ErrNotFound = errors.New("not found")

// Resolver turns an identifier into the current string value of a named
// entity. Unknown identifiers return ErrNotFound.
type Resolver interface {
	Resolve(id string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id string) (string, error)

// Resolve calls f(id).
func (f ResolverFunc) Resolve(id string) (string, error) {
	return f(id)
}

// UnresolvedReferenceError reports a reference the resolver does not know.
type UnresolvedReferenceError struct {
	ID    string
	Cause error
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q", e.ID)
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return e.Cause
}

// Context carries the evaluating variable's identity into a chain
// application.
type Context struct {
	SelfID    string  // References to this id resolve to Base
	Base      string  // Value before the first transformation
	Tolerance float64 // Equality tolerance of double comparisons
}

// Evaluator applies chains. The zero value is not usable; call New.
type Evaluator struct {
	lang language.Tag
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLanguage sets the language used for case mapping.
func WithLanguage(tag language.Tag) Option {
	return func(e *Evaluator) { e.lang = tag }
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{lang: language.Und}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs each transformation of c in order, starting from ctx.Base.
// Every distinct reference is read from r at most once per call.
func (e *Evaluator) Apply(c *chain.Chain, ctx Context, r Resolver) (string, error) {
	app := &application{
		eval: e,
		ctx:  ctx,
		r:    r,
		seen: make(map[string]string),
	}
	value := ctx.Base
	if c == nil {
		return value, nil
	}
	for _, t := range c.Steps {
		var err error
		value, err = app.step(t, value)
		if err != nil {
			return "", err
		}
	}
	return value, nil
}

// application is the state of a single Apply call.
type application struct {
	eval *Evaluator
	ctx  Context
	r    Resolver
	seen map[string]string
}

// resolve returns the string value of a literal or reference argument.
func (a *application) resolve(arg chain.Argument) (string, error) {
	switch arg.Kind {
	case chain.Literal:
		return arg.Text, nil
	case chain.Reference:
	default:
		return "", nil
	}

	if arg.Text == a.ctx.SelfID {
		return a.ctx.Base, nil
	}
	if v, ok := a.seen[arg.Text]; ok {
		return v, nil
	}
	if a.r == nil {
		return "", &UnresolvedReferenceError{ID: arg.Text, Cause: ErrNotFound}
	}

	v, err := a.r.Resolve(arg.Text)
	if err != nil {
		return "", ReferenceError(arg.Text, err)
	}
	a.seen[arg.Text] = v
	return v, nil
}

// ReferenceError classifies a resolver failure for id. A bare ErrNotFound
// becomes an UnresolvedReferenceError; failures from deeper evaluations are
// wrapped with the identifier and otherwise kept intact.
func ReferenceError(id string, err error) error {
	var unresolved *UnresolvedReferenceError
	if errors.Is(err, ErrNotFound) && !errors.As(err, &unresolved) {
		return &UnresolvedReferenceError{ID: id, Cause: err}
	}
	return fmt.Errorf("resolving %q: %w", id, err)
}

// step applies one transformation to value.
func (a *application) step(t chain.Transformation, value string) (string, error) {
	var args [3]string
	for i := 0; i < t.N; i++ {
		v, err := a.resolve(t.Args[i])
		if err != nil {
			return "", err
		}
		args[i] = v
	}

	switch t.Kind {
	case chain.Trim, chain.StripWhitespace, chain.CollapseWhitespace, chain.Lower, chain.Upper:
		return a.eval.reshape(t.Kind, value), nil
	case chain.Floor, chain.Round, chain.Ceil:
		return roundToInteger(t.Kind, value), nil
	case chain.Replace:
		return replace(value, args[0], args[1]), nil
	case chain.Insert, chain.Append:
		return splice(t, value, args), nil
	case chain.Delete, chain.Substring:
		return cut(t, value, args), nil
	case chain.Count:
		return count(value, args[0], args[1]), nil
	case chain.Equal, chain.NotEqual, chain.Less, chain.LessEqual, chain.Greater, chain.GreaterEqual:
		return branch(t, value, args, compareStrings(value, args[0]), true), nil
	case chain.IsInt, chain.IsDouble:
		return check(t, value, args), nil
	case chain.Add, chain.Subtract, chain.Multiply, chain.Divide:
		return arithmetic(t, value, args[0]), nil
	case chain.NumEqual, chain.NumNotEqual, chain.NumLess, chain.NumLessEqual, chain.NumGreater, chain.NumGreaterEqual:
		cmp, ok := compareNumbers(t.Integer, value, args[0], a.ctx.Tolerance)
		return branch(t, value, args, cmp, ok), nil
	}
	panic(fmt.Sprintf("eval: unhandled transformation kind %s", t.Kind))
}

// branch picks the true or false branch of a three-branch comparison. When
// the comparison could not be made the value is unchanged.
func branch(t chain.Transformation, value string, args [3]string, cmp int, ok bool) string {
	if !ok {
		return value
	}
	if holds(t.Kind, cmp) {
		return args[1]
	}
	if t.N == 3 {
		return args[2]
	}
	return value
}

func holds(k chain.Kind, cmp int) bool {
	switch k {
	case chain.Equal, chain.NumEqual:
		return cmp == 0
	case chain.NotEqual, chain.NumNotEqual:
		return cmp != 0
	case chain.Less, chain.NumLess:
		return cmp < 0
	case chain.LessEqual, chain.NumLessEqual:
		return cmp <= 0
	case chain.Greater, chain.NumGreater:
		return cmp > 0
	case chain.GreaterEqual, chain.NumGreaterEqual:
		return cmp >= 0
	}
	return false
}
