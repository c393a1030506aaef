// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"nickandperla.net/varchain/internal/chain"
)

// reshape applies the argument-free string transformations.
func (e *Evaluator) reshape(k chain.Kind, value string) string {
	switch k {
	case chain.Trim:
		return strings.TrimSpace(value)
	case chain.StripWhitespace:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, value)
	case chain.CollapseWhitespace:
		return strings.Join(strings.Fields(value), " ")
	case chain.Lower:
		return cases.Lower(e.lang).String(value)
	case chain.Upper:
		return cases.Upper(e.lang).String(value)
	}
	return value
}

func replace(value, old, with string) string {
	if old == "" {
		return value
	}
	return strings.ReplaceAll(value, old, with)
}

// splice implements insert (before) and append (after).
func splice(t chain.Transformation, value string, args [3]string) string {
	text := args[0]
	after := t.Kind == chain.Append
	if t.N == 1 {
		if after {
			return value + text
		}
		return text + value
	}

	rs := []rune(value)
	at := t.Args[1]
	var idx int
	if at.Kind == chain.Position {
		idx = clamp(at.Pos, len(rs))
		if after {
			idx = clamp(idx+1, len(rs))
		}
	} else {
		from := 0
		if t.N == 3 {
			from = clamp(t.Args[2].Pos, len(rs))
		}
		pattern := args[1]
		found := indexRunes(rs, pattern, from)
		if pattern == "" || found < 0 {
			return value
		}
		idx = found
		if after {
			idx += utf8.RuneCountInString(pattern)
		}
	}
	return string(rs[:idx]) + text + string(rs[idx:])
}

// cut implements delete and substring over a bounded span.
func cut(t chain.Transformation, value string, args [3]string) string {
	rs := []rune(value)
	start, end, ok := span(t, rs, args)
	if !ok {
		return value
	}
	if t.Kind == chain.Substring {
		if start >= end {
			return ""
		}
		return string(rs[start:end])
	}
	if start >= end {
		return value
	}
	return string(rs[:start]) + string(rs[end:])
}

// span locates the rune range selected by a delete or substring.
func span(t chain.Transformation, rs []rune, args [3]string) (start, end int, ok bool) {
	var searchFrom int
	if first := t.Args[0]; first.Kind == chain.Position {
		start = clamp(first.Pos, len(rs))
		if t.StartExclusive {
			start = clamp(start+1, len(rs))
		}
		searchFrom = start
	} else {
		pattern := args[0]
		idx := indexRunes(rs, pattern, 0)
		if pattern == "" || idx < 0 {
			return 0, 0, false
		}
		n := utf8.RuneCountInString(pattern)
		start = idx
		if t.StartExclusive {
			start += n
		}
		searchFrom = idx + n
	}

	if t.N < 2 {
		return start, len(rs), true
	}

	if last := t.Args[1]; last.Kind == chain.Position {
		end = clamp(last.Pos, len(rs))
		if !t.EndExclusive {
			end = clamp(end+1, len(rs))
		}
		return start, end, true
	}

	pattern := args[1]
	idx := indexRunes(rs, pattern, searchFrom)
	if pattern == "" || idx < 0 {
		return 0, 0, false
	}
	end = idx
	if !t.EndExclusive {
		end += utf8.RuneCountInString(pattern)
	}
	return start, end, true
}

// count counts non-overlapping occurrences of pattern after removing every
// comma-separated exception. Zero matches leave the value unchanged.
func count(value, pattern, exceptions string) string {
	if pattern == "" {
		return value
	}
	stripped := value
	if exceptions != "" {
		for _, ex := range strings.Split(exceptions, ",") {
			if ex != "" {
				stripped = strings.ReplaceAll(stripped, ex, "")
			}
		}
	}
	n := strings.Count(stripped, pattern)
	if n == 0 {
		return value
	}
	return strconv.Itoa(n)
}

func compareStrings(value, other string) int {
	return strings.Compare(value, other)
}

// indexRunes returns the rune offset of the first occurrence of pattern in
// rs at or after rune offset from, or -1.
func indexRunes(rs []rune, pattern string, from int) int {
	if from > len(rs) {
		return -1
	}
	tail := string(rs[from:])
	b := strings.Index(tail, pattern)
	if b < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(tail[:b])
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
