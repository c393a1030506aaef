package variable

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/eval"
)

// table resolves identifiers to fixed strings or to other variables.
type table struct {
	consts map[string]string
	vars   map[string]*Variable
	calls  map[string]int
}

func newTable(consts map[string]string) *table {
	return &table{consts: consts, vars: make(map[string]*Variable), calls: make(map[string]int)}
}

func (t *table) Resolve(id string) (string, error) {
	t.calls[id]++
	if v, ok := t.vars[id]; ok {
		return v.Value()
	}
	if s, ok := t.consts[id]; ok {
		return s, nil
	}
	return "", ErrNotFound
}

func (t *table) add(id, expression string, opts ...Option) *Variable {
	v := New(id, expression, t, opts...)
	t.vars[id] = v
	return v
}

func mustValue(t *testing.T, v *Variable) string {
	t.Helper()
	got, err := v.Value()
	if err != nil {
		t.Fatalf("variable %s: unexpected error: %v", v.ID, err)
	}
	return got
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		src  string
		want Expression
	}{
		{"@", Expression{Literal: true}},
		{"@hello", Expression{Literal: true, Text: "hello"}},
		{`@a\tb`, Expression{Literal: true, Text: "a\tb"}},
		{"@x[t]", Expression{Literal: true, Text: "x[t]"}},
		{"name", Expression{Text: "name"}},
		{"name[t]", Expression{Text: "name", Chain: "t", HasChain: true}},
		{`name[r"]","x"]`, Expression{Text: "name", Chain: `r"]","x"`, HasChain: true}},
		{`a\[b`, Expression{Text: `a\[b`}},
	}
	for _, tt := range tests {
		got, err := ParseExpression(tt.src)
		if err != nil {
			t.Errorf("ParseExpression(%q): unexpected error: %v", tt.src, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExpression(%q): expected %+v, got %+v", tt.src, tt.want, got)
		}
		if !got.Literal && got.String() != tt.src {
			t.Errorf("ParseExpression(%q).String() = %q", tt.src, got.String())
		}
	}
}

func TestParseExpressionUnterminated(t *testing.T) {
	for _, src := range []string{"x[t", "x[", "x[]y"} {
		_, err := ParseExpression(src)
		var se *chain.SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("ParseExpression(%q): expected *chain.SyntaxError, got %v", src, err)
		}
	}
}

func TestLiteralValues(t *testing.T) {
	tab := newTable(nil)
	if got := mustValue(t, tab.add("empty", "@")); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := mustValue(t, tab.add("text", `@line\nbreak`)); got != "line\nbreak" {
		t.Errorf("expected decoded escape, got %q", got)
	}
}

func TestBaseAndChain(t *testing.T) {
	tab := newTable(map[string]string{"greeting": "  Hello World  ", "who": "there"})
	plain := tab.add("plain", "greeting")
	if got := mustValue(t, plain); got != "  Hello World  " {
		t.Errorf("expected base value, got %q", got)
	}
	v := tab.add("v", `greeting[tr"World",who@l]`)
	if got := mustValue(t, v); got != "hello there" {
		t.Errorf("expected hello there, got %q", got)
	}
}

func TestDependsOnOtherVariable(t *testing.T) {
	tab := newTable(map[string]string{"n": "10"})
	tab.add("half", `n[ndi"2"]`)
	total := tab.add("total", `half[nai"1"]`)
	if got := mustValue(t, total); got != "6" {
		t.Errorf("expected 6, got %q", got)
	}
}

func TestOnComputedSeesDependencies(t *testing.T) {
	computed := make(map[string]string)
	record := WithOnComputed(func(id, value string) { computed[id] = value })

	tab := newTable(map[string]string{"n": "10"})
	half := tab.add("half", `n[ndi"2"]`, record)
	total := tab.add("total", `half[nai"1"]`, record)
	if got := mustValue(t, total); got != "6" {
		t.Fatalf("expected 6, got %q", got)
	}
	if computed["half"] != "5" || computed["total"] != "6" {
		t.Errorf("expected half=5 and total=6 reported, got %v", computed)
	}

	delete(computed, "half")
	mustValue(t, half)
	if _, ok := computed["half"]; ok {
		t.Error("memoized values must not be reported again")
	}
	half.Reset()
	mustValue(t, half)
	if computed["half"] != "5" {
		t.Errorf("expected recomputed half reported, got %v", computed)
	}
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		expression string
		want       []string
	}{
		{"@5", nil},
		{"n", []string{"n"}},
		{`n[nai"1"]`, []string{"n"}},
		{`s[as@as@]`, []string{"s"}},
		{`greeting[tr"World",who@l]`, []string{"greeting", "who"}},
		{`x[r a@,b@ia@na c@]`, []string{"x", "a", "b", "c"}},
	}
	for _, tt := range tests {
		got, err := New("v", tt.expression, nil).Dependencies()
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.expression, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%q: dependencies mismatch (-want +got):\n%s", tt.expression, diff)
		}
	}

	_, err := New("v", "n[zz]", nil).Dependencies()
	var se *chain.SyntaxError
	if !errors.As(err, &se) {
		t.Errorf("expected *chain.SyntaxError, got %v", err)
	}
}

func TestSelfReferenceInBase(t *testing.T) {
	tab := newTable(nil)
	v := tab.add("v", "v[t]")
	_, err := v.Value()
	var sre *SelfReferenceError
	if !errors.As(err, &sre) || sre.ID != "v" {
		t.Fatalf("expected *SelfReferenceError for v, got %v", err)
	}
	if v.Computed() {
		t.Error("failed computation must not be memoized")
	}
}

func TestSelfReferenceInChain(t *testing.T) {
	tab := newTable(map[string]string{"s": "ab"})
	v := tab.add("v", "s[av@av@]")
	if got := mustValue(t, v); got != "ababab" {
		t.Errorf("expected ababab, got %q", got)
	}
}

func TestUnresolvedReference(t *testing.T) {
	tab := newTable(map[string]string{"s": "x"})
	for _, expr := range []string{"missing", `s[a"-",missing@]`} {
		v := tab.add("v", expr)
		_, err := v.Value()
		var ure *UnresolvedReferenceError
		if !errors.As(err, &ure) || ure.ID != "missing" {
			t.Errorf("%q: expected unresolved reference missing, got %v", expr, err)
		}
		if v.Computed() {
			t.Errorf("%q: failed computation must not be memoized", expr)
		}
	}
}

func TestSyntaxErrorFailsFast(t *testing.T) {
	tab := newTable(map[string]string{"x": "abc"})
	for _, expr := range []string{"x[t", `x[q]`, `x[r"a"]`} {
		v := tab.add("v", expr)
		_, err := v.Value()
		var se *chain.SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected *chain.SyntaxError, got %v", expr, err)
		}
	}
}

func TestMemoizationAndReset(t *testing.T) {
	tab := newTable(map[string]string{"s": "a"})
	v := tab.add("v", `s[as@as@]`)
	if got := mustValue(t, v); got != "aaa" {
		t.Fatalf("expected aaa, got %q", got)
	}
	if tab.calls["s"] != 1 {
		t.Errorf("expected one lookup of s, got %d", tab.calls["s"])
	}

	tab.consts["s"] = "b"
	if got := mustValue(t, v); got != "aaa" {
		t.Errorf("expected memoized aaa, got %q", got)
	}
	if !v.Computed() {
		t.Error("expected computed before reset")
	}

	v.Reset()
	if v.Computed() {
		t.Error("expected uncomputed after reset")
	}
	if got := mustValue(t, v); got != "bbb" {
		t.Errorf("expected recomputed bbb, got %q", got)
	}
}

func TestCycle(t *testing.T) {
	tab := newTable(nil)
	a := tab.add("a", "b[t]")
	b := tab.add("b", "a[t]")
	_, err := a.Value()
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if ce.ID != "a" {
		t.Errorf("expected cycle through a, got %q", ce.ID)
	}
	if a.Computed() || b.Computed() {
		t.Error("variables in a cycle must stay uncomputed")
	}

	// Breaking the cycle makes both computable again.
	b.Expression = "@x"
	if got := mustValue(t, a); got != "x" {
		t.Errorf("expected x, got %q", got)
	}
}

func TestAnswerValue(t *testing.T) {
	tab := newTable(map[string]string{"n": "7"})
	v := tab.add("v", `n[nai"1"]`, WithAnswer(`v[nmi"2"]`), WithTolerance(0.5))
	if v.Tolerance != 0.5 {
		t.Errorf("expected tolerance 0.5, got %v", v.Tolerance)
	}
	got, err := v.AnswerValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "16" {
		t.Errorf("expected 16, got %q", got)
	}
	if !v.Computed() || mustValue(t, v) != "8" {
		t.Errorf("answer must compute the variable itself")
	}

	plain := tab.add("p", "n")
	if got, err := plain.AnswerValue(); err != nil || got != "7" {
		t.Errorf("without answer expression: expected 7, got %q (%v)", got, err)
	}
}

func TestSharedCache(t *testing.T) {
	cache := chain.NewCache()
	tab := newTable(map[string]string{"s": " a "})
	a := tab.add("a", "s[t]", WithCache(cache))
	b := tab.add("b", "s[t]", WithCache(cache), WithEvaluator(eval.New()))
	mustValue(t, a)
	mustValue(t, b)
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}

	a.Reset()
	mustValue(t, a)
	if hits, _ := cache.Stats(); hits != 1 {
		t.Errorf("recomputing must reuse the variable's compiled chain, got %d hits", hits)
	}
}
