package document

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/varchain/internal/ctxlog"
)

const exerciseHCL = `
constant "unit" {
  value = "cm"
}

constant "count" {
  value = 3
}

constant "ratio" {
  value = 1.5
}

constant "enabled" {
  value = true
}

random "a" {
  min = 1
  max = 10
}

random "b" {
  min  = 0.5
  max  = 2
  step = 0.25
}

random "fruit" {
  choices = ["apple", "pear"]
}

replace "greeting" {
  options = ["hello", "hi"]
  select  = "pick"
}

control "pick" {
  default = "1"
}

marker "m" {
  x = 3
  y = -1.5
}

variable "sum" {
  expression = "a[nai\"1\"]"
  answer     = "sum[nmi\"2\"]"
  tolerance  = 0.01
}
`

func TestParse(t *testing.T) {
	// --- Act ---
	doc, err := Parse("exercise.hcl", []byte(exerciseHCL))

	// --- Assert ---
	require.NoError(t, err)
	want := &Document{
		Constants: []Constant{
			{ID: "unit", Value: "cm"},
			{ID: "count", Value: "3"},
			{ID: "ratio", Value: "1.5"},
			{ID: "enabled", Value: "true"},
		},
		Randoms: []Random{
			{ID: "a", Min: 1, Max: 10},
			{ID: "b", Min: 0.5, Max: 2, Step: 0.25},
			{ID: "fruit", Choices: []string{"apple", "pear"}},
		},
		Replaces:  []Replace{{ID: "greeting", Options: []string{"hello", "hi"}, Select: "pick"}},
		Variables: []Variable{{ID: "sum", Expression: `a[nai"1"]`, Answer: `sum[nmi"2"]`, Tolerance: 0.01}},
		Controls:  []Control{{ID: "pick", Default: "1"}},
		Markers:   []Marker{{ID: "m", X: 3, Y: -1.5}},
	}
	if diff := cmp.Diff(want, doc, cmpopts.IgnoreTypes(hcl.Range{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Parsed document mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "exercise.hcl", doc.Variables[0].Range.Filename)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"duplicate across kinds", `
constant "x" { value = 1 }
control "x" {}
`, "Duplicate identifier"},
		{"marker coordinate clash", `
marker "m" {}
constant "m.x" { value = 1 }
`, "Duplicate identifier"},
		{"invalid identifier", `constant "a b" { value = 1 }`, "Invalid identifier"},
		{"min above max", `
random "r" {
  min = 5
  max = 1
}
`, "Invalid random source"},
		{"fractional integer range", `
random "r" {
  min = 0.5
  max = 1
}
`, "Invalid random source"},
		{"missing max", `
random "r" {
  min = 1
}
`, "Incomplete random source"},
		{"empty replacement", `replace "r" { options = [] }`, "Empty replacement"},
		{"list constant", `constant "c" { value = [1, 2] }`, "Unsupported constant value"},
		{"unknown block", `widget "w" {}`, "Unsupported block type"},
		{"missing expression", `variable "v" {}`, "Missing required argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.hcl", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadDirectoriesAndFiles(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`constant "a" { value = "1" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "b.hcl"), []byte(`variable "b" { expression = "a" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	extra := filepath.Join(t.TempDir(), "extra.doc")
	require.NoError(t, os.WriteFile(extra, []byte(`control "c" {}`), 0o644))

	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))

	// --- Act ---
	doc, err := Load(ctx, dir, extra)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, doc.Constants, 1)
	assert.Len(t, doc.Variables, 1)
	assert.Len(t, doc.Controls, 1)
}

func TestLoadReportsDuplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`constant "x" { value = 1 }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`variable "x" { expression = "@" }`), 0o644))

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Duplicate identifier")

	var diags hcl.Diagnostics
	require.ErrorAs(t, err, &diags)
	assert.True(t, diags.HasErrors())
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMergeAndValidateProgrammaticDocument(t *testing.T) {
	doc := &Document{Constants: []Constant{{ID: "a", Value: "1"}}}
	doc.Merge(&Document{Variables: []Variable{{ID: "b", Expression: "a"}}})
	assert.False(t, doc.Validate().HasErrors())

	doc.Merge(&Document{Controls: []Control{{ID: "a"}}})
	diags := doc.Validate()
	require.True(t, diags.HasErrors())
	assert.Nil(t, diags[0].Subject, "programmatic declarations have no source range")
}

func TestHasAndWithout(t *testing.T) {
	doc := &Document{
		Constants: []Constant{{ID: "a"}, {ID: "b"}},
		Markers:   []Marker{{ID: "m"}},
	}
	assert.True(t, doc.Has("a"))
	assert.True(t, doc.Has("m.y"))
	assert.False(t, doc.Has("c"))

	trimmed := doc.Without(func(id string) bool { return id == "a" })
	assert.False(t, trimmed.Has("a"))
	assert.True(t, trimmed.Has("b"))
	assert.True(t, doc.Has("a"), "Without must not modify the original")
}
