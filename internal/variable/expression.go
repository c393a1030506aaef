// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package variable

import (
	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/escape"
	"nickandperla.net/varchain/internal/token"
)

// Expression is a parsed source expression: a literal, a base reference,
// or a base reference followed by a chain.
type Expression struct {
	Literal  bool
	Text     string // Decoded literal, or the base identifier
	Chain    string // Raw chain text without brackets
	HasChain bool
}

// ParseExpression splits a source expression of the form "@", "@literal",
// "id" or "id[chain]".
func ParseExpression(src string) (Expression, error) {
	if len(src) > 0 && src[0] == byte(token.RuneReference) {
		return Expression{Literal: true, Text: escape.Decode(src[1:])}, nil
	}

	open := openBracket(src)
	if open < 0 {
		return Expression{Text: src}, nil
	}
	if src[len(src)-1] != byte(token.RuneEndChain) || len(src)-1 <= open {
		return Expression{}, &chain.SyntaxError{
			Pos:   len([]rune(src)),
			Msg:   "unterminated chain, expected ']'",
			Chain: src,
		}
	}
	return Expression{
		Text:     src[:open],
		Chain:    src[open+1 : len(src)-1],
		HasChain: true,
	}, nil
}

// openBracket returns the byte offset of the first '[' not preceded by a
// backslash, or -1.
func openBracket(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case byte(token.RuneEscape):
			i++
		case byte(token.RuneOpenChain):
			return i
		}
	}
	return -1
}

// String renders the expression back to source syntax.
func (e Expression) String() string {
	if e.Literal {
		return string(token.RuneReference) + e.Text
	}
	if !e.HasChain {
		return e.Text
	}
	return e.Text + string(token.RuneOpenChain) + e.Chain + string(token.RuneEndChain)
}
