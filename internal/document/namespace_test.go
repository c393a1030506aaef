package document

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/varchain/internal/chain"
	"nickandperla.net/varchain/internal/eval"
	"nickandperla.net/varchain/internal/variable"
)

func newExercise(t *testing.T, opts ...Option) *Namespace {
	t.Helper()
	doc, err := Parse("exercise.hcl", []byte(exerciseHCL))
	require.NoError(t, err)
	ns, err := NewNamespace(doc, opts...)
	require.NoError(t, err)
	return ns
}

func resolve(t *testing.T, ns *Namespace, id string) string {
	t.Helper()
	v, err := ns.Resolve(id)
	require.NoError(t, err, "resolving %q", id)
	return v
}

func TestResolveEntities(t *testing.T) {
	ns := newExercise(t, WithSeed(42))

	tests := []struct {
		id, want string
	}{
		{"unit", "cm"},
		{"count", "3"},
		{"enabled", "true"},
		{"pick", "1"},
		{"greeting", "hi"},
		{"m.x", "3.0"},
		{"m.y", "-1.5"},
		{`@a\tb`, "a\tb"},
		{"@", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolve(t, ns, tt.id), "resolving %q", tt.id)
	}
}

func TestResolveUnknown(t *testing.T) {
	ns := newExercise(t)
	for _, id := range []string{"nope", "m.z", "unit.x", ""} {
		_, err := ns.Resolve(id)
		assert.ErrorIs(t, err, eval.ErrNotFound, "resolving %q", id)
	}
}

func TestRandomSources(t *testing.T) {
	ns := newExercise(t, WithSeed(7))

	a, err := strconv.Atoi(resolve(t, ns, "a"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a, 1)
	assert.LessOrEqual(t, a, 10)

	bText := resolve(t, ns, "b")
	b, err := strconv.ParseFloat(bText, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b, 0.5)
	assert.LessOrEqual(t, b, 2.0)
	assert.InDelta(t, 0, math.Mod(b-0.5, 0.25), 1e-9, "b=%s is not on a 0.25 step", bText)
	assert.Len(t, bText, 4, "b=%s should carry two decimals", bText)

	assert.Contains(t, []string{"apple", "pear"}, resolve(t, ns, "fruit"))
}

func TestRandomDrawsAreStableAndSeeded(t *testing.T) {
	ids := []string{"a", "b", "fruit"}
	first := newExercise(t, WithSeed(99))
	second := newExercise(t, WithSeed(99))

	for _, id := range ids {
		v := resolve(t, first, id)
		assert.Equal(t, v, resolve(t, first, id), "draw of %q changed without reset", id)
		assert.Equal(t, v, resolve(t, second, id), "same seed must give the same draw of %q", id)
	}
	assert.Equal(t, int64(99), first.Seed())
}

func TestResetPicksReproducibleSeed(t *testing.T) {
	ns := newExercise(t, WithSeed(5))
	require.NoError(t, ns.SetControl("pick", "0"))

	ns.Reset()
	assert.NotEqual(t, int64(5), ns.Seed())
	assert.Equal(t, "1", resolve(t, ns, "pick"), "reset restores control defaults")

	replay := newExercise(t, WithSeed(ns.Seed()))
	for _, id := range []string{"a", "b", "fruit"} {
		assert.Equal(t, resolve(t, replay, id), resolve(t, ns, id), "seed must reproduce %q", id)
	}
}

func TestZeroSeedPicksOne(t *testing.T) {
	ns := newExercise(t)
	assert.NotZero(t, ns.Seed())
}

func TestReplaceSelection(t *testing.T) {
	ns := newExercise(t)
	require.NoError(t, ns.SetControl("pick", "0"))
	assert.Equal(t, "hello", resolve(t, ns, "greeting"))

	require.NoError(t, ns.SetControl("pick", "5"))
	_, err := ns.Resolve("greeting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want an index below 2")
}

func TestReplaceWithoutSelector(t *testing.T) {
	doc := &Document{Replaces: []Replace{{ID: "r", Options: []string{"x", "y", "z"}}}}
	ns, err := NewNamespace(doc, WithSeed(3))
	require.NoError(t, err)
	v := resolve(t, ns, "r")
	assert.Contains(t, []string{"x", "y", "z"}, v)
	assert.Equal(t, v, resolve(t, ns, "r"))
}

func TestReplaceSelectedByVariable(t *testing.T) {
	doc := &Document{
		Constants: []Constant{{ID: "n", Value: "3"}},
		Variables: []Variable{{ID: "idx", Expression: `n[nsi"2"]`}},
		Replaces:  []Replace{{ID: "r", Options: []string{"zero", "one"}, Select: "idx"}},
	}
	ns, err := NewNamespace(doc)
	require.NoError(t, err)
	assert.Equal(t, "one", resolve(t, ns, "r"))
}

func TestVariablesResolveThroughNamespace(t *testing.T) {
	cache := chain.NewCache()
	ns := newExercise(t, WithSeed(11), WithCache(cache))

	a, err := strconv.Atoi(resolve(t, ns, "a"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(a+1), resolve(t, ns, "sum"))

	v, ok := ns.Variable("sum")
	require.True(t, ok)
	assert.True(t, v.Computed())
	assert.InDelta(t, 0.01, v.Tolerance, 1e-12)

	answer, err := v.AnswerValue()
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(2*(a+1)), answer)

	ns.ResetVariables()
	assert.False(t, v.Computed())
	assert.Equal(t, []string{"sum"}, ns.VariableIDs())
	assert.Equal(t, 2, cache.Len(), "expression and answer chains")
}

func TestOnComputedReachesDependencies(t *testing.T) {
	doc := &Document{
		Constants: []Constant{{ID: "n", Value: "4"}},
		Variables: []Variable{
			{ID: "a", Expression: "n[nai\"1\"]"},
			{ID: "b", Expression: "a[nmi\"2\"]"},
		},
	}
	computed := make(map[string]string)
	ns, err := NewNamespace(doc, WithOnComputed(func(id, value string) { computed[id] = value }))
	require.NoError(t, err)

	assert.Equal(t, "10", resolve(t, ns, "b"))
	assert.Equal(t, map[string]string{"a": "5", "b": "10"}, computed)
}

func TestVariableErrorsPropagate(t *testing.T) {
	doc := &Document{Variables: []Variable{
		{ID: "a", Expression: "b[t]"},
		{ID: "b", Expression: "a[t]"},
		{ID: "c", Expression: "ghost"},
	}}
	ns, err := NewNamespace(doc)
	require.NoError(t, err)

	_, err = ns.Resolve("a")
	var cycle *variable.CycleError
	assert.True(t, errors.As(err, &cycle), "expected cycle error, got %v", err)

	_, err = ns.Resolve("c")
	var unresolved *variable.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved), "expected unresolved reference, got %v", err)
	assert.Equal(t, "ghost", unresolved.ID)
}

func TestSetControlAndMarker(t *testing.T) {
	ns := newExercise(t)

	require.NoError(t, ns.SetControl("pick", "0"))
	assert.Equal(t, map[string]string{"pick": "0"}, ns.Controls())
	assert.ErrorIs(t, ns.SetControl("unit", "x"), eval.ErrNotFound)

	require.NoError(t, ns.SetMarker("m", 0.5, 2))
	assert.Equal(t, "0.5", resolve(t, ns, "m.x"))
	assert.Equal(t, "2.0", resolve(t, ns, "m.y"))
	assert.ErrorIs(t, ns.SetMarker("nope", 0, 0), eval.ErrNotFound)
}

func TestNewNamespaceRejectsInvalidDocument(t *testing.T) {
	doc := &Document{Constants: []Constant{{ID: "x"}, {ID: "x"}}}
	_, err := NewNamespace(doc)
	require.Error(t, err)
}
