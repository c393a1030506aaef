// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"nickandperla.net/varchain/internal/ctxlog"
)

// Extension is the file extension of document files.
const Extension = ".hcl"

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: KindConstant, LabelNames: []string{"id"}},
		{Type: KindRandom, LabelNames: []string{"id"}},
		{Type: KindReplace, LabelNames: []string{"id"}},
		{Type: KindVariable, LabelNames: []string{"id"}},
		{Type: KindControl, LabelNames: []string{"id"}},
		{Type: KindMarker, LabelNames: []string{"id"}},
	},
}

type constantBody struct {
	Value cty.Value `hcl:"value"`
}

type randomBody struct {
	Min     *float64 `hcl:"min,optional"`
	Max     *float64 `hcl:"max,optional"`
	Step    *float64 `hcl:"step,optional"`
	Choices []string `hcl:"choices,optional"`
}

type replaceBody struct {
	Options []string `hcl:"options"`
	Select  string   `hcl:"select,optional"`
}

type variableBody struct {
	Expression string  `hcl:"expression"`
	Answer     string  `hcl:"answer,optional"`
	Tolerance  float64 `hcl:"tolerance,optional"`
}

type controlBody struct {
	Default string `hcl:"default,optional"`
}

type markerBody struct {
	X float64 `hcl:"x,optional"`
	Y float64 `hcl:"y,optional"`
}

// Load reads every document file named by paths, descending into
// directories, and returns their merged and validated contents.
func Load(ctx context.Context, paths ...string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	parser := hclparse.NewParser()
	for _, path := range files {
		logger.Debug("Loading document file", "path", path)
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse document file %s: %w", path, diags)
		}
		part, diags := decode(file.Body)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode document file %s: %w", path, diags)
		}
		doc.Merge(part)
	}

	if diags := doc.Validate(); diags.HasErrors() {
		return nil, fmt.Errorf("invalid document: %w", diags)
	}
	logger.Debug("Document loaded", "files", len(files), "variables", len(doc.Variables))
	return doc, nil
}

// Parse decodes a single document from src. The filename is used in
// diagnostics only.
func Parse(filename string, src []byte) (*Document, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}
	doc, diags := decode(file.Body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}
	if diags := doc.Validate(); diags.HasErrors() {
		return nil, fmt.Errorf("invalid document %s: %w", filename, diags)
	}
	return doc, nil
}

func decode(body hcl.Body) (*Document, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	doc := &Document{}
	for _, block := range content.Blocks {
		id := block.Labels[0]
		rng := block.DefRange
		switch block.Type {
		case KindConstant:
			var b constantBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			value, d := constantString(b.Value, block)
			if diags = append(diags, d...); diags.HasErrors() {
				return nil, diags
			}
			doc.Constants = append(doc.Constants, Constant{ID: id, Value: value, Range: rng})
		case KindRandom:
			var b randomBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			r := Random{ID: id, Choices: b.Choices, Range: rng}
			if b.Min != nil {
				r.Min = *b.Min
			}
			if b.Max != nil {
				r.Max = *b.Max
			}
			if b.Step != nil {
				r.Step = *b.Step
			}
			if len(r.Choices) == 0 && (b.Min == nil || b.Max == nil) {
				return nil, append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Incomplete random source",
					Detail:   fmt.Sprintf("random %q needs both min and max, or choices.", id),
					Subject:  &block.DefRange,
				})
			}
			doc.Randoms = append(doc.Randoms, r)
		case KindReplace:
			var b replaceBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			doc.Replaces = append(doc.Replaces, Replace{ID: id, Options: b.Options, Select: b.Select, Range: rng})
		case KindVariable:
			var b variableBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			doc.Variables = append(doc.Variables, Variable{
				ID:         id,
				Expression: b.Expression,
				Answer:     b.Answer,
				Tolerance:  b.Tolerance,
				Range:      rng,
			})
		case KindControl:
			var b controlBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			doc.Controls = append(doc.Controls, Control{ID: id, Default: b.Default, Range: rng})
		case KindMarker:
			var b markerBody
			if diags = append(diags, gohcl.DecodeBody(block.Body, nil, &b)...); diags.HasErrors() {
				return nil, diags
			}
			doc.Markers = append(doc.Markers, Marker{ID: id, X: b.X, Y: b.Y, Range: rng})
		}
	}
	return doc, diags
}

// constantString converts any primitive HCL value to its string form.
func constantString(v cty.Value, block *hcl.Block) (string, hcl.Diagnostics) {
	if v.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil || !s.IsKnown() {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported constant value",
			Detail:   fmt.Sprintf("constant %q must be a string, number or bool.", block.Labels[0]),
			Subject:  &block.DefRange,
		}}
	}
	if s.IsNull() {
		return "", nil
	}
	return s.AsString(), nil
}

// findFiles expands directories into the document files they contain.
func findFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read document path %s: %w", root, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), Extension) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to find document files in %s: %w", root, err)
		}
	}
	return files, nil
}
