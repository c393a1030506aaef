// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines transformation-chain token types and delimiter runes.
package token

// Token represents a chain token type.
type Token int

const (
	EOF Token = iota

	OP        // Operation code, e.g. r, nai, n<=
	MARKER    // Boundary marker after d/s: + inclusive, - exclusive
	LITERAL   // "text"
	REFERENCE // id@
	POSITION  // #12
	COMMA     // Argument separator
)

// Delimiter runes.
const (
	RuneQuote     = '"'  // Opens and closes a literal
	RuneReference = '@'  // Terminates a reference; also the literal-escape marker of a source expression
	RunePosition  = '#'  // Introduces a position
	RuneComma     = ','  // Separates arguments
	RuneEscape    = '\\' // Escapes the next rune inside literals
	RuneInclusive = '+'  // Inclusive boundary marker
	RuneExclusive = '-'  // Exclusive boundary marker
	RuneOpenChain = '['  // Opens the chain of a source expression
	RuneEndChain  = ']'  // Closes the chain of a source expression
)

// IsMarker returns true if the rune is a boundary marker.
func IsMarker(r rune) bool {
	return r == RuneInclusive || r == RuneExclusive
}

// String returns the string representation of a token.
func (t Token) String() string {
	switch t {
	case EOF:
		return "EOF"
	case OP:
		return "OP"
	case MARKER:
		return "MARKER"
	case LITERAL:
		return "LITERAL"
	case REFERENCE:
		return "REFERENCE"
	case POSITION:
		return "POSITION"
	case COMMA:
		return "COMMA"
	}
	return "UNKNOWN"
}

// IsArgument returns true if the token carries an argument value.
func (t Token) IsArgument() bool {
	switch t {
	case LITERAL, REFERENCE, POSITION:
		return true
	}
	return false
}

// ArgMode describes whether an operation code takes arguments.
type ArgMode int

const (
	NoArgs ArgMode = iota
	OptionalArgs
	RequiredArgs
)

// Opcode is the lexical shape of an operation code.
type Opcode struct {
	Code    string
	Args    ArgMode
	Markers bool // Accepts a boundary marker pair directly after the code
}
