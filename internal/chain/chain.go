// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package chain defines compiled transformation chains and their compiler.
package chain

import (
	"strconv"
	"strings"

	"nickandperla.net/varchain/internal/escape"
	"nickandperla.net/varchain/internal/token"
)

// Kind discriminates Transformation variants.
type Kind int

const (
	Trim Kind = iota
	StripWhitespace
	CollapseWhitespace
	Lower
	Upper
	Floor
	Round
	Ceil
	Replace
	Insert
	Append
	Delete
	Substring
	Count
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	IsInt
	IsDouble
	Add
	Subtract
	Multiply
	Divide
	NumEqual
	NumNotEqual
	NumLess
	NumLessEqual
	NumGreater
	NumGreaterEqual

	numKinds
)

var kindNames = [numKinds]string{
	Trim:               "trim",
	StripWhitespace:    "strip-whitespace",
	CollapseWhitespace: "collapse-whitespace",
	Lower:              "lower",
	Upper:              "upper",
	Floor:              "floor",
	Round:              "round",
	Ceil:               "ceil",
	Replace:            "replace",
	Insert:             "insert",
	Append:             "append",
	Delete:             "delete",
	Substring:          "substring",
	Count:              "count",
	Equal:              "equal",
	NotEqual:           "not-equal",
	Less:               "less",
	LessEqual:          "less-equal",
	Greater:            "greater",
	GreaterEqual:       "greater-equal",
	IsInt:              "is-int",
	IsDouble:           "is-double",
	Add:                "add",
	Subtract:           "subtract",
	Multiply:           "multiply",
	Divide:             "divide",
	NumEqual:           "num-equal",
	NumNotEqual:        "num-not-equal",
	NumLess:            "num-less",
	NumLessEqual:       "num-less-equal",
	NumGreater:         "num-greater",
	NumGreaterEqual:    "num-greater-equal",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// ArgKind discriminates Argument variants.
type ArgKind int

const (
	None ArgKind = iota
	Literal
	Reference
	Position
)

// Argument is a literal string, a reference to a named entity, or a
// structural rune position.
type Argument struct {
	Kind ArgKind
	Text string // Literal text or reference identifier
	Pos  int    // Position value
}

// Lit creates a literal argument.
func Lit(s string) Argument { return Argument{Kind: Literal, Text: s} }

// Ref creates a reference argument.
func Ref(id string) Argument { return Argument{Kind: Reference, Text: id} }

// At creates a position argument.
func At(pos int) Argument { return Argument{Kind: Position, Pos: pos} }

func (a Argument) String() string {
	switch a.Kind {
	case Literal:
		return string(token.RuneQuote) + escape.Encode(a.Text) + string(token.RuneQuote)
	case Reference:
		return a.Text + string(token.RuneReference)
	case Position:
		return string(token.RunePosition) + strconv.Itoa(a.Pos)
	}
	return ""
}

// Transformation is one step of a chain.
type Transformation struct {
	Kind Kind
	Op   string // Operation code as written
	Args [3]Argument
	N    int // Number of arguments in use

	Integer        bool // Integer variant of a numeric operation
	Negate         bool // Inverted numeric check
	StartExclusive bool // Delete/Substring start bound excludes the match
	EndExclusive   bool // Delete/Substring end bound excludes the match
}

// Arg returns argument i, or the zero Argument if absent.
func (t Transformation) Arg(i int) Argument {
	if i < 0 || i >= t.N {
		return Argument{}
	}
	return t.Args[i]
}

// String renders the transformation back to chain syntax.
func (t Transformation) String() string {
	var sb strings.Builder
	sb.WriteString(t.Op)
	if (t.Kind == Delete || t.Kind == Substring) && (t.StartExclusive || t.EndExclusive) {
		sb.WriteRune(marker(t.StartExclusive))
		sb.WriteRune(marker(t.EndExclusive))
	}
	for i := 0; i < t.N; i++ {
		if i > 0 {
			sb.WriteRune(token.RuneComma)
		}
		sb.WriteString(t.Args[i].String())
	}
	return sb.String()
}

func marker(exclusive bool) rune {
	if exclusive {
		return token.RuneExclusive
	}
	return token.RuneInclusive
}

// Chain is a compiled transformation chain. It is immutable once built.
type Chain struct {
	Raw   string
	Steps []Transformation
}

// Len returns the number of transformations.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Steps)
}

// String renders the chain in canonical syntax.
func (c *Chain) String() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range c.Steps {
		sb.WriteString(t.String())
	}
	return sb.String()
}

// References returns the distinct reference identifiers in order of first use.
func (c *Chain) References() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var refs []string
	for _, t := range c.Steps {
		for i := 0; i < t.N; i++ {
			a := t.Args[i]
			if a.Kind != Reference {
				continue
			}
			if _, ok := seen[a.Text]; ok {
				continue
			}
			seen[a.Text] = struct{}{}
			refs = append(refs, a.Text)
		}
	}
	return refs
}
