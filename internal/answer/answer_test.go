package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdict(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		response string
		expected string
		want     Verdict
	}{
		{"numbers equal", Options{}, "15", "15.0", Verdict{true, ModeNumber}},
		{"numbers outside tolerance", Options{}, "15.01", "15.0", Verdict{false, ModeNumber}},
		{"numbers within tolerance", Options{Tolerance: 0.05}, " 15.01 ", "15.0", Verdict{true, ModeNumber}},
		{"case folded", Options{}, "Paris", "PARIS", Verdict{true, ModeCaseFold}},
		{"case sensitive", Options{CaseSensitive: true}, "Paris", "PARIS", Verdict{false, ModeExact}},
		{"whitespace kept", Options{}, "New  York", "new york", Verdict{false, ModeCaseFold}},
		{"whitespace folded", Options{FoldWhitespace: true}, " New  York ", "new york", Verdict{true, ModeCaseFold}},
		{"number against text", Options{}, "3", "three", Verdict{false, ModeCaseFold}},
		{"pattern", Options{Pattern: true}, "Colour", "colou?r", Verdict{true, ModeRegex}},
		{"pattern anchored", Options{Pattern: true}, "colours", "colou?r", Verdict{false, ModeRegex}},
		{"pattern case sensitive", Options{Pattern: true, CaseSensitive: true}, "Color", "colou?r", Verdict{false, ModeRegex}},
		{"pattern alternation anchored", Options{Pattern: true}, "xb", "a|b", Verdict{false, ModeRegex}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.opts).Verdict(tt.response, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func correct(t *testing.T, m *Matcher, response, expected string) bool {
	t.Helper()
	v, err := m.Verdict(response, expected)
	require.NoError(t, err)
	return v.Correct
}

func TestInvalidPattern(t *testing.T) {
	m := New(Options{Pattern: true})
	v, err := m.Verdict("x", "(")
	require.Error(t, err)
	assert.False(t, v.Correct)
	assert.Equal(t, ModeRegex, v.Mode)
}

func TestPatternsAreCached(t *testing.T) {
	m := New(Options{Pattern: true})
	assert.True(t, correct(t, m, "abc", "a.c"))
	assert.True(t, correct(t, m, "axc", "a.c"))
	assert.Len(t, m.patterns, 1)
}

func TestWithTolerance(t *testing.T) {
	m := New(Options{CaseSensitive: true})
	loose := m.WithTolerance(0.5)
	assert.False(t, correct(t, m, "1.2", "1"))
	assert.True(t, correct(t, loose, "1.2", "1"))

	v, err := loose.Verdict("Yes", "yes")
	require.NoError(t, err)
	assert.Equal(t, Verdict{false, ModeExact}, v, "the copy keeps the other options")
}
