package scanner

import (
	"errors"
	"testing"

	"nickandperla.net/varchain/internal/token"
)

type testLexicon map[string]token.Opcode

func (l testLexicon) Longest(src []rune) (token.Opcode, bool) {
	for n := len(src); n > 0; n-- {
		if op, ok := l[string(src[:n])]; ok {
			return op, true
		}
	}
	return token.Opcode{}, false
}

var lex = testLexicon{
	"t":  {Code: "t", Args: token.NoArgs},
	"l":  {Code: "l", Args: token.NoArgs},
	"r":  {Code: "r", Args: token.RequiredArgs},
	"d":  {Code: "d", Args: token.RequiredArgs, Markers: true},
	"ni": {Code: "ni", Args: token.OptionalArgs},
	"na": {Code: "na", Args: token.RequiredArgs},
}

type tok struct {
	t token.Token
	v string
}

func scanAll(t *testing.T, src string) []tok {
	t.Helper()
	s := New(src, lex)
	var out []tok
	for {
		item, err := s.Next()
		if err != nil {
			t.Fatalf("scan %q: unexpected error: %v", src, err)
		}
		if item.Token == token.EOF {
			return out
		}
		out = append(out, tok{item.Token, item.Value})
	}
}

func expectTokens(t *testing.T, src string, want []tok) {
	t.Helper()
	got := scanAll(t, src)
	if len(got) != len(want) {
		t.Fatalf("scan %q: expected %d tokens %v, got %d %v", src, len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scan %q: token %d: expected %v, got %v", src, i, want[i], got[i])
		}
	}
}

func TestScanLiterals(t *testing.T) {
	expectTokens(t, `r"world","there"`, []tok{
		{token.OP, "r"}, {token.LITERAL, "world"}, {token.COMMA, ","}, {token.LITERAL, "there"},
	})
}

func TestScanEscapedLiteral(t *testing.T) {
	expectTokens(t, `r"a\"b","c\\d"`, []tok{
		{token.OP, "r"}, {token.LITERAL, `a"b`}, {token.COMMA, ","}, {token.LITERAL, `c\d`},
	})
}

func TestScanNoArgOps(t *testing.T) {
	expectTokens(t, "tl", []tok{{token.OP, "t"}, {token.OP, "l"}})
}

func TestScanReferenceAfterOp(t *testing.T) {
	expectTokens(t, `rfoo.bar@,"x"`, []tok{
		{token.OP, "r"}, {token.REFERENCE, "foo.bar"}, {token.COMMA, ","}, {token.LITERAL, "x"},
	})
}

func TestScanOptionalArgsFallBackToOp(t *testing.T) {
	expectTokens(t, "nit", []tok{{token.OP, "ni"}, {token.OP, "t"}})
	expectTokens(t, `nit@,"no"l`, []tok{
		{token.OP, "ni"}, {token.REFERENCE, "t"}, {token.COMMA, ","}, {token.LITERAL, "no"}, {token.OP, "l"},
	})
}

func TestScanMarkersAndPositions(t *testing.T) {
	expectTokens(t, `d-+#2,"x"`, []tok{
		{token.OP, "d"}, {token.MARKER, "-"}, {token.MARKER, "+"},
		{token.POSITION, "2"}, {token.COMMA, ","}, {token.LITERAL, "x"},
	})
}

func TestScanSkipsWhitespace(t *testing.T) {
	expectTokens(t, ` r "a" , "b"  t `, []tok{
		{token.OP, "r"}, {token.LITERAL, "a"}, {token.COMMA, ","}, {token.LITERAL, "b"}, {token.OP, "t"},
	})
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		src string
		op  string
	}{
		{`r"abc`, "r"},
		{`rfoo"x"`, "r"},
		{`r"a",`, "r"},
		{`r`, "r"},
		{`q`, "q"},
		{`na#`, "na"},
	}
	for _, tt := range tests {
		s := New(tt.src, lex)
		var err error
		for err == nil {
			var item *Item
			item, err = s.Next()
			if err == nil && item.Token == token.EOF {
				break
			}
		}
		var se *Error
		if !errors.As(err, &se) {
			t.Errorf("scan %q: expected *Error, got %v", tt.src, err)
			continue
		}
		if se.Op != tt.op {
			t.Errorf("scan %q: expected op %q, got %q", tt.src, tt.op, se.Op)
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	s := New("tl", lex)
	p, err := s.Peek()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != n || n.Value != "t" {
		t.Errorf("expected peeked item 't' to be returned by Next, got %v", n)
	}
}
