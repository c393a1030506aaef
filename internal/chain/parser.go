// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package chain

import (
	"errors"
	"fmt"
	"strconv"

	"nickandperla.net/varchain/internal/scanner"
	"nickandperla.net/varchain/internal/token"
)

// Compile parses a raw chain string into a Chain.
func Compile(raw string) (*Chain, error) {
	p := &parser{scan: scanner.New(raw, lexicon{}), raw: raw}
	steps, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Chain{Raw: raw, Steps: steps}, nil
}

type parser struct {
	scan *scanner.Scanner
	raw  string
}

func (p *parser) parse() ([]Transformation, error) {
	var steps []Transformation
	for {
		item, err := p.next()
		if err != nil {
			return nil, err
		}
		switch item.Token {
		case token.EOF:
			return steps, nil
		case token.OP:
			t, err := p.parseTransformation(item)
			if err != nil {
				return nil, err
			}
			steps = append(steps, t)
		default:
			return nil, p.errorf("", item.Pos, "unexpected %s", item.Token)
		}
	}
}

// parseTransformation reads the markers and arguments following an
// operation code and validates them against the rule table.
func (p *parser) parseTransformation(op *scanner.Item) (Transformation, error) {
	r, ok := byCode[op.Value]
	if !ok {
		return Transformation{}, p.errorf(op.Value, op.Pos, "unknown operation")
	}
	t := Transformation{Kind: r.kind, Op: r.code, Integer: r.integer, Negate: r.negate}

	var markers []string
	for {
		item, err := p.scan.Peek()
		if err != nil {
			return Transformation{}, p.wrap(err)
		}
		if item.Token != token.MARKER {
			break
		}
		p.scan.Next()
		markers = append(markers, item.Value)
	}
	switch len(markers) {
	case 0:
	case 2:
		t.StartExclusive = markers[0] == string(token.RuneExclusive)
		t.EndExclusive = markers[1] == string(token.RuneExclusive)
	default:
		return Transformation{}, p.errorf(r.code, op.Pos, "boundary markers must come in pairs")
	}

	for {
		item, err := p.scan.Peek()
		if err != nil {
			return Transformation{}, p.wrap(err)
		}
		if !item.Token.IsArgument() {
			break
		}
		p.scan.Next()

		if t.N == len(t.Args) {
			return Transformation{}, p.errorf(r.code, item.Pos, "too many arguments")
		}
		arg, err := p.argument(r.code, item)
		if err != nil {
			return Transformation{}, err
		}
		if !r.slots[t.N].accepts(arg.Kind) {
			return Transformation{}, p.errorf(r.code, item.Pos, "argument %d cannot be a %s", t.N+1, argKindName(arg.Kind))
		}
		t.Args[t.N] = arg
		t.N++

		sep, err := p.scan.Peek()
		if err != nil {
			return Transformation{}, p.wrap(err)
		}
		if sep.Token != token.COMMA {
			break
		}
		p.scan.Next()
	}

	if !r.arity.allows(t.N) {
		return Transformation{}, p.errorf(r.code, op.Pos, "%d argument(s) not allowed", t.N)
	}
	return t, nil
}

func (p *parser) argument(code string, item *scanner.Item) (Argument, error) {
	switch item.Token {
	case token.LITERAL:
		return Lit(item.Value), nil
	case token.REFERENCE:
		return Ref(item.Value), nil
	case token.POSITION:
		n, err := strconv.Atoi(item.Value)
		if err != nil {
			return Argument{}, p.errorf(code, item.Pos, "position %s out of range", item.Value)
		}
		return At(n), nil
	}
	return Argument{}, p.errorf(code, item.Pos, "unexpected %s", item.Token)
}

func (p *parser) next() (*scanner.Item, error) {
	item, err := p.scan.Next()
	if err != nil {
		return nil, p.wrap(err)
	}
	return item, nil
}

// wrap converts scanner errors into SyntaxErrors.
func (p *parser) wrap(err error) error {
	var se *scanner.Error
	if errors.As(err, &se) {
		return &SyntaxError{Op: se.Op, Pos: se.Pos, Msg: se.Msg, Chain: p.raw, Cause: err}
	}
	return &SyntaxError{Pos: p.scan.Pos(), Msg: err.Error(), Chain: p.raw, Cause: err}
}

func (p *parser) errorf(op string, pos int, format string, args ...any) error {
	return &SyntaxError{Op: op, Pos: pos, Msg: fmt.Sprintf(format, args...), Chain: p.raw}
}

func argKindName(k ArgKind) string {
	switch k {
	case Literal:
		return "literal"
	case Reference:
		return "reference"
	case Position:
		return "position"
	}
	return "missing argument"
}
