// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package answer compares responses with the value a variable expects.
package answer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"nickandperla.net/varchain/internal/eval"
)

// Mode names how a response was compared.
type Mode string

const (
	ModeNumber   Mode = "number"
	ModeRegex    Mode = "regex"
	ModeExact    Mode = "exact"
	ModeCaseFold Mode = "case_fold"
)

// Verdict is the outcome of one comparison.
type Verdict struct {
	Correct bool
	Mode    Mode
}

// Options configures a Matcher.
type Options struct {
	CaseSensitive  bool
	FoldWhitespace bool    // Trim and collapse runs of whitespace
	Tolerance      float64 // Accepted difference between numeric answers
	Pattern        bool    // Expected text is a regular expression
}

// Matcher compares responses with expected answers. Compiled patterns are
// cached, so a Matcher is safe for concurrent use.
type Matcher struct {
	opts Options

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	return &Matcher{
		opts:     opts,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// WithTolerance returns a copy of m comparing numbers within tolerance.
func (m *Matcher) WithTolerance(tolerance float64) *Matcher {
	opts := m.opts
	opts.Tolerance = tolerance
	return New(opts)
}

// Verdict compares response with expected. With Pattern set, expected is a
// regular expression that must match the whole response. Otherwise numbers
// compare within the tolerance and other text compares as strings.
func (m *Matcher) Verdict(response, expected string) (Verdict, error) {
	if m.opts.FoldWhitespace {
		response = collapse(response)
	}

	if m.opts.Pattern {
		re, err := m.pattern(expected)
		if err != nil {
			return Verdict{Mode: ModeRegex}, err
		}
		return Verdict{Correct: re.MatchString(response), Mode: ModeRegex}, nil
	}

	if m.opts.FoldWhitespace {
		expected = collapse(expected)
	}
	if a, ok := eval.ParseDouble(response); ok {
		if b, ok := eval.ParseDouble(expected); ok {
			return Verdict{Correct: math.Abs(a-b) <= math.Max(m.opts.Tolerance, 0), Mode: ModeNumber}, nil
		}
	}
	if m.opts.CaseSensitive {
		return Verdict{Correct: response == expected, Mode: ModeExact}, nil
	}
	fold := cases.Fold()
	return Verdict{Correct: fold.String(response) == fold.String(expected), Mode: ModeCaseFold}, nil
}

func (m *Matcher) pattern(expr string) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.patterns[expr]; ok {
		return re, nil
	}
	src := `^(?:` + expr + `)$`
	if !m.opts.CaseSensitive {
		src = `(?i)` + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid answer pattern %q: %w", expr, err)
	}
	m.patterns[expr] = re
	return re, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
