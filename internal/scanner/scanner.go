// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides an opcode-aware tokenizer for transformation chains.
package scanner

import (
	"fmt"
	"strings"
	"unicode"

	"nickandperla.net/varchain/internal/escape"
	"nickandperla.net/varchain/internal/token"
)

// Lexicon resolves operation codes for the scanner.
type Lexicon interface {
	// Longest returns the longest operation code that prefixes src.
	Longest(src []rune) (token.Opcode, bool)
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string
	Pos   int // Rune offset where this token started
}

// Error is a lexical error in a chain.
type Error struct {
	Op  string // Operation code being scanned, empty before the first one
	Pos int
	Msg string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s at offset %d", e.Msg, e.Pos)
	}
	return fmt.Sprintf("%s in %q at offset %d", e.Msg, e.Op, e.Pos)
}

type state int

const (
	stateOp state = iota
	stateMarker
	stateFirstArg
	stateArg
	stateSeparator
)

// Scanner tokenizes a chain rune-by-rune.
type Scanner struct {
	src     []rune
	pos     int
	lex     Lexicon
	state   state
	op      token.Opcode
	markers int
	peeked  *Item
}

// New creates a new Scanner over a raw chain string.
func New(src string, lex Lexicon) *Scanner {
	return &Scanner{src: []rune(src), lex: lex}
}

// Pos returns the current rune offset.
func (s *Scanner) Pos() int {
	return s.pos
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (*Item, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	s.peeked = item
	return item, nil
}

// Next returns the next token from the input.
func (s *Scanner) Next() (*Item, error) {
	if s.peeked != nil {
		item := s.peeked
		s.peeked = nil
		return item, nil
	}

	for {
		switch s.state {
		case stateOp:
			return s.scanOp()

		case stateMarker:
			if s.markers < 2 && s.pos < len(s.src) && token.IsMarker(s.src[s.pos]) {
				s.markers++
				s.pos++
				return &Item{Token: token.MARKER, Value: string(s.src[s.pos-1]), Pos: s.pos - 1}, nil
			}
			s.state = stateFirstArg

		case stateFirstArg, stateArg:
			item, err := s.scanArg()
			if err != nil || item != nil {
				return item, err
			}
			// Optional arguments absent: back to operation position.
			s.state = stateOp

		case stateSeparator:
			s.skipWhitespace()
			if s.pos < len(s.src) && s.src[s.pos] == token.RuneComma {
				s.pos++
				s.state = stateArg
				return &Item{Token: token.COMMA, Value: ",", Pos: s.pos - 1}, nil
			}
			s.state = stateOp
		}
	}
}

// scanOp matches the longest operation code at the current offset.
func (s *Scanner) scanOp() (*Item, error) {
	s.skipWhitespace()
	if s.pos >= len(s.src) {
		return &Item{Token: token.EOF, Pos: s.pos}, nil
	}

	op, ok := s.lex.Longest(s.src[s.pos:])
	if !ok {
		return nil, &Error{Op: string(s.src[s.pos]), Pos: s.pos, Msg: "unknown operation"}
	}

	start := s.pos
	s.pos += len([]rune(op.Code))
	s.op = op
	s.markers = 0
	switch {
	case op.Markers:
		s.state = stateMarker
	case op.Args != token.NoArgs:
		s.state = stateFirstArg
	default:
		s.state = stateOp
	}
	return &Item{Token: token.OP, Value: op.Code, Pos: start}, nil
}

// scanArg reads one argument. It returns a nil item without error when an
// optional first argument is absent.
func (s *Scanner) scanArg() (*Item, error) {
	s.skipWhitespace()
	first := s.state == stateFirstArg
	optional := first && s.op.Args == token.OptionalArgs

	if s.pos >= len(s.src) {
		if optional {
			return nil, nil
		}
		return nil, s.errorf("missing argument")
	}

	start := s.pos
	r := s.src[s.pos]
	switch {
	case r == token.RuneQuote:
		value, err := s.scanLiteral()
		if err != nil {
			return nil, err
		}
		s.state = stateSeparator
		return &Item{Token: token.LITERAL, Value: value, Pos: start}, nil

	case r == token.RunePosition:
		s.pos++
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.pos++
		}
		if s.pos == start+1 {
			return nil, s.errorf("position without digits")
		}
		s.state = stateSeparator
		return &Item{Token: token.POSITION, Value: string(s.src[start+1 : s.pos]), Pos: start}, nil

	case IsIdentRune(r):
		end := s.pos
		for end < len(s.src) && IsIdentRune(s.src[end]) {
			end++
		}
		if end < len(s.src) && s.src[end] == token.RuneReference {
			s.pos = end + 1
			s.state = stateSeparator
			return &Item{Token: token.REFERENCE, Value: string(s.src[start:end]), Pos: start}, nil
		}
		if optional {
			return nil, nil
		}
		return nil, s.errorf("unterminated reference %q", string(s.src[start:end]))
	}

	if optional {
		return nil, nil
	}
	return nil, s.errorf("missing argument")
}

// scanLiteral reads a quoted literal and returns its decoded text.
func (s *Scanner) scanLiteral() (string, error) {
	start := s.pos
	s.pos++ // opening quote
	var raw strings.Builder
	for s.pos < len(s.src) {
		r := s.src[s.pos]
		if r == token.RuneEscape && s.pos+1 < len(s.src) {
			raw.WriteRune(r)
			raw.WriteRune(s.src[s.pos+1])
			s.pos += 2
			continue
		}
		if r == token.RuneQuote {
			s.pos++
			return escape.Decode(raw.String()), nil
		}
		raw.WriteRune(r)
		s.pos++
	}
	s.pos = start
	return "", s.errorf("unterminated literal")
}

func (s *Scanner) skipWhitespace() {
	for s.pos < len(s.src) && unicode.IsSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *Scanner) errorf(format string, args ...any) *Error {
	return &Error{Op: s.op.Code, Pos: s.pos, Msg: fmt.Sprintf(format, args...)}
}

// IsIdentRune returns true if the rune may appear in a reference identifier.
func IsIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ':' || r == '-'
}
