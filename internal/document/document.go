// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package document holds the named entities a derived variable can refer to
// and resolves identifiers against them.
package document

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"

	"nickandperla.net/varchain/internal/scanner"
)

// Entity kinds, as written in document files.
const (
	KindConstant = "constant"
	KindRandom   = "random"
	KindReplace  = "replace"
	KindVariable = "variable"
	KindControl  = "control"
	KindMarker   = "marker"
)

// Constant is a fixed string value.
type Constant struct {
	ID    string
	Value string
	Range hcl.Range
}

// Random draws one value per attempt. With Choices it picks one of them;
// otherwise it draws from [Min, Max], as an integer when Step is zero and
// as a multiple of Step above Min when it is not.
type Random struct {
	ID      string
	Min     float64
	Max     float64
	Step    float64
	Choices []string
	Range   hcl.Range
}

// Replace yields one of Options. Select names the entity whose integer
// value indexes Options; without it an option is drawn at random.
type Replace struct {
	ID      string
	Options []string
	Select  string
	Range   hcl.Range
}

// Variable declares a derived variable.
type Variable struct {
	ID         string
	Expression string
	Answer     string
	Tolerance  float64
	Range      hcl.Range
}

// Control is an answer-bearing input whose value is set by the host.
type Control struct {
	ID      string
	Default string
	Range   hcl.Range
}

// Marker is a drawable point, readable as "<id>.x" and "<id>.y".
type Marker struct {
	ID    string
	X, Y  float64
	Range hcl.Range
}

// Document is the set of entities of one exercise.
type Document struct {
	Constants []Constant
	Randoms   []Random
	Replaces  []Replace
	Variables []Variable
	Controls  []Control
	Markers   []Marker
}

// declaration is one identifier with where and as what it was declared.
type declaration struct {
	id    string
	kind  string
	rng   hcl.Range
	extra []string // Derived identifiers, such as marker coordinates
}

func (d *Document) declarations() []declaration {
	var out []declaration
	for _, c := range d.Constants {
		out = append(out, declaration{id: c.ID, kind: KindConstant, rng: c.Range})
	}
	for _, r := range d.Randoms {
		out = append(out, declaration{id: r.ID, kind: KindRandom, rng: r.Range})
	}
	for _, r := range d.Replaces {
		out = append(out, declaration{id: r.ID, kind: KindReplace, rng: r.Range})
	}
	for _, v := range d.Variables {
		out = append(out, declaration{id: v.ID, kind: KindVariable, rng: v.Range})
	}
	for _, c := range d.Controls {
		out = append(out, declaration{id: c.ID, kind: KindControl, rng: c.Range})
	}
	for _, m := range d.Markers {
		out = append(out, declaration{id: m.ID, kind: KindMarker, rng: m.Range, extra: []string{m.ID + ".x", m.ID + ".y"}})
	}
	return out
}

// Has reports whether id is declared, including derived marker coordinates.
func (d *Document) Has(id string) bool {
	for _, decl := range d.declarations() {
		if decl.id == id {
			return true
		}
		for _, extra := range decl.extra {
			if extra == id {
				return true
			}
		}
	}
	return false
}

// Without returns a copy of d without the entities for which drop returns
// true.
func (d *Document) Without(drop func(id string) bool) *Document {
	out := &Document{}
	for _, c := range d.Constants {
		if !drop(c.ID) {
			out.Constants = append(out.Constants, c)
		}
	}
	for _, r := range d.Randoms {
		if !drop(r.ID) {
			out.Randoms = append(out.Randoms, r)
		}
	}
	for _, r := range d.Replaces {
		if !drop(r.ID) {
			out.Replaces = append(out.Replaces, r)
		}
	}
	for _, v := range d.Variables {
		if !drop(v.ID) {
			out.Variables = append(out.Variables, v)
		}
	}
	for _, c := range d.Controls {
		if !drop(c.ID) {
			out.Controls = append(out.Controls, c)
		}
	}
	for _, m := range d.Markers {
		if !drop(m.ID) {
			out.Markers = append(out.Markers, m)
		}
	}
	return out
}

// Merge appends every entity of other to d. Duplicates are reported by
// Validate.
func (d *Document) Merge(other *Document) {
	d.Constants = append(d.Constants, other.Constants...)
	d.Randoms = append(d.Randoms, other.Randoms...)
	d.Replaces = append(d.Replaces, other.Replaces...)
	d.Variables = append(d.Variables, other.Variables...)
	d.Controls = append(d.Controls, other.Controls...)
	d.Markers = append(d.Markers, other.Markers...)
}

// Validate checks identifiers for syntax and uniqueness across all kinds,
// and the ranges of random and replacement sources.
func (d *Document) Validate() hcl.Diagnostics {
	var diags hcl.Diagnostics
	seen := make(map[string]declaration)

	for _, decl := range d.declarations() {
		if !validID(decl.id) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid identifier",
				Detail:   fmt.Sprintf("%q is not a valid %s identifier; use letters, digits, '_', '.', ':' and '-'.", decl.id, decl.kind),
				Subject:  subject(decl.rng),
			})
			continue
		}
		for _, id := range append([]string{decl.id}, decl.extra...) {
			if prev, ok := seen[id]; ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate identifier",
					Detail:   fmt.Sprintf("%q is already declared as a %s at %s.", id, prev.kind, prev.rng),
					Subject:  subject(decl.rng),
				})
				continue
			}
			seen[id] = decl
		}
	}

	for _, r := range d.Randoms {
		diags = append(diags, r.validate()...)
	}
	for _, r := range d.Replaces {
		if len(r.Options) == 0 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Empty replacement",
				Detail:   fmt.Sprintf("replace %q needs at least one option.", r.ID),
				Subject:  subject(r.Range),
			})
		}
	}
	return diags
}

func (r Random) validate() hcl.Diagnostics {
	if len(r.Choices) > 0 {
		return nil
	}
	var detail string
	switch {
	case math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max:
		detail = fmt.Sprintf("random %q needs min <= max or a list of choices.", r.ID)
	case r.Step < 0:
		detail = fmt.Sprintf("random %q has a negative step.", r.ID)
	case r.Step == 0 && (r.Min != math.Trunc(r.Min) || r.Max != math.Trunc(r.Max)):
		detail = fmt.Sprintf("random %q draws integers; min and max must be whole numbers or a step must be given.", r.ID)
	default:
		return nil
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid random source",
		Detail:   detail,
		Subject:  subject(r.Range),
	}}
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !scanner.IsIdentRune(r) {
			return false
		}
	}
	return true
}

// subject returns nil for the zero range of programmatic declarations.
func subject(r hcl.Range) *hcl.Range {
	if r.Filename == "" {
		return nil
	}
	return &r
}
