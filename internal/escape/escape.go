// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package escape decodes and encodes backslash escapes in user text.
package escape

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Decode resolves backslash escape sequences.
//
// \n, \t and \r map to their control characters, \uXXXX to a UTF-16 code
// unit (surrogate pairs are combined), and a backslash before any other
// rune yields that rune. A trailing lone backslash is kept as is.
func Decode(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' || i+1 >= len(runes) {
			sb.WriteRune(r)
			continue
		}
		i++
		switch next := runes[i]; next {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'u':
			unit, ok := hexUnit(runes, i+1)
			if !ok {
				sb.WriteRune('u')
				continue
			}
			i += 4
			if utf16.IsSurrogate(rune(unit)) && i+2 < len(runes) && runes[i+1] == '\\' && runes[i+2] == 'u' {
				if low, ok := hexUnit(runes, i+3); ok {
					if combined := utf16.DecodeRune(rune(unit), rune(low)); combined != unicode.ReplacementChar {
						sb.WriteRune(combined)
						i += 6
						continue
					}
				}
			}
			sb.WriteRune(rune(unit))
		default:
			sb.WriteRune(next)
		}
	}
	return sb.String()
}

// hexUnit parses four hex digits starting at runes[at].
func hexUnit(runes []rune, at int) (uint16, bool) {
	if at+4 > len(runes) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(runes[at:at+4]), 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// Encode escapes backslashes, double quotes, newlines and tabs so that
// Decode(Encode(s)) == s.
func Encode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
