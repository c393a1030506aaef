// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package chain

import "nickandperla.net/varchain/internal/token"

// class is a bitmask of argument kinds accepted in a slot.
type class uint8

const (
	classString   class = 1 << iota // Literal or Reference
	classPosition                   // Position
)

const classAny = classString | classPosition

func (c class) accepts(k ArgKind) bool {
	switch k {
	case Literal, Reference:
		return c&classString != 0
	case Position:
		return c&classPosition != 0
	}
	return false
}

// arity is a bitmask of accepted argument counts.
type arity uint8

func arities(counts ...int) arity {
	var a arity
	for _, n := range counts {
		a |= 1 << n
	}
	return a
}

func (a arity) allows(n int) bool { return n >= 0 && n < 8 && a&(1<<n) != 0 }

func (a arity) bounds() (lo, hi int) {
	lo, hi = -1, -1
	for n := 0; n < 8; n++ {
		if a.allows(n) {
			if lo < 0 {
				lo = n
			}
			hi = n
		}
	}
	return lo, hi
}

// rule maps an operation code to the transformation it builds.
type rule struct {
	code    string
	kind    Kind
	arity   arity
	slots   [3]class
	markers bool
	integer bool
	negate  bool
}

func (r *rule) opcode() token.Opcode {
	op := token.Opcode{Code: r.code, Markers: r.markers}
	switch lo, hi := r.arity.bounds(); {
	case hi == 0:
		op.Args = token.NoArgs
	case lo == 0:
		op.Args = token.OptionalArgs
	default:
		op.Args = token.RequiredArgs
	}
	return op
}

var (
	noArgs     = arities(0)
	oneString  = [3]class{classString}
	twoStrings = [3]class{classString, classString}
	branches   = [3]class{classString, classString, classString}
	spliceArgs = [3]class{classString, classAny, classPosition}
	spanArgs   = [3]class{classAny, classAny}
)

var rules = []rule{
	{code: "t", kind: Trim, arity: noArgs},
	{code: "ws", kind: StripWhitespace, arity: noArgs},
	{code: "wc", kind: CollapseWhitespace, arity: noArgs},
	{code: "l", kind: Lower, arity: noArgs},
	{code: "u", kind: Upper, arity: noArgs},
	{code: "n_", kind: Floor, arity: noArgs},
	{code: "n~", kind: Round, arity: noArgs},
	{code: "n^", kind: Ceil, arity: noArgs},

	{code: "r", kind: Replace, arity: arities(2), slots: twoStrings},
	{code: "i", kind: Insert, arity: arities(1, 2, 3), slots: spliceArgs},
	{code: "a", kind: Append, arity: arities(1, 2, 3), slots: spliceArgs},
	{code: "d", kind: Delete, arity: arities(1, 2), slots: spanArgs, markers: true},
	{code: "s", kind: Substring, arity: arities(1, 2), slots: spanArgs, markers: true},
	{code: "c", kind: Count, arity: arities(1, 2), slots: twoStrings},

	{code: "=", kind: Equal, arity: arities(2, 3), slots: branches},
	{code: "!=", kind: NotEqual, arity: arities(2, 3), slots: branches},
	{code: "<", kind: Less, arity: arities(2, 3), slots: branches},
	{code: "<=", kind: LessEqual, arity: arities(2, 3), slots: branches},
	{code: ">", kind: Greater, arity: arities(2, 3), slots: branches},
	{code: ">=", kind: GreaterEqual, arity: arities(2, 3), slots: branches},

	{code: "ni", kind: IsInt, arity: arities(0, 2), slots: twoStrings},
	{code: "nf", kind: IsDouble, arity: arities(0, 2), slots: twoStrings},
	{code: "n!i", kind: IsInt, arity: arities(0, 2), slots: twoStrings, negate: true},
	{code: "n!f", kind: IsDouble, arity: arities(0, 2), slots: twoStrings, negate: true},
}

func init() {
	arithmetic := []struct {
		code string
		kind Kind
	}{{"na", Add}, {"ns", Subtract}, {"nm", Multiply}, {"nd", Divide}}
	for _, op := range arithmetic {
		rules = append(rules,
			rule{code: op.code, kind: op.kind, arity: arities(1), slots: oneString},
			rule{code: op.code + "i", kind: op.kind, arity: arities(1), slots: oneString, integer: true},
		)
	}

	comparisons := []struct {
		code string
		kind Kind
	}{
		{"n=", NumEqual}, {"n!=", NumNotEqual},
		{"n<", NumLess}, {"n<=", NumLessEqual},
		{"n>", NumGreater}, {"n>=", NumGreaterEqual},
	}
	for _, op := range comparisons {
		rules = append(rules,
			rule{code: op.code, kind: op.kind, arity: arities(2, 3), slots: branches},
			rule{code: op.code + "i", kind: op.kind, arity: arities(2, 3), slots: branches, integer: true},
		)
	}

	byCode = make(map[string]*rule, len(rules))
	for i := range rules {
		r := &rules[i]
		byCode[r.code] = r
		if n := len([]rune(r.code)); n > longestCode {
			longestCode = n
		}
	}
}

var (
	byCode      map[string]*rule
	longestCode int
)

// lexicon exposes the rule table to the scanner.
type lexicon struct{}

// Longest returns the longest operation code prefixing src.
func (lexicon) Longest(src []rune) (token.Opcode, bool) {
	for n := min(longestCode, len(src)); n > 0; n-- {
		if r, ok := byCode[string(src[:n])]; ok {
			return r.opcode(), true
		}
	}
	return token.Opcode{}, false
}

// Opcodes returns every operation code the compiler accepts.
func Opcodes() []string {
	codes := make([]string, len(rules))
	for i := range rules {
		codes[i] = rules[i].code
	}
	return codes
}
