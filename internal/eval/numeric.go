// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"strconv"
	"strings"

	"nickandperla.net/varchain/internal/chain"
)

// ParseDouble parses a finite double, ignoring surrounding whitespace.
func ParseDouble(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseInt parses a base-10 64-bit integer, ignoring surrounding whitespace.
func ParseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatDouble renders f the way the host platform prints doubles: at least
// one fractional digit, and scientific notation with a bare exponent outside
// [1e-3, 1e7).
func FormatDouble(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}

// arithmetic applies add/subtract/multiply/divide. Non-numeric operands,
// division by zero and non-finite results leave the value unchanged.
func arithmetic(t chain.Transformation, value, operand string) string {
	if t.Integer {
		a, ok := ParseInt(value)
		if !ok {
			return value
		}
		b, ok := ParseInt(operand)
		if !ok {
			return value
		}
		var r int64
		switch t.Kind {
		case chain.Add:
			r = a + b
		case chain.Subtract:
			r = a - b
		case chain.Multiply:
			r = a * b
		case chain.Divide:
			if b == 0 {
				return value
			}
			r = a / b
		}
		return strconv.FormatInt(r, 10)
	}

	a, ok := ParseDouble(value)
	if !ok {
		return value
	}
	b, ok := ParseDouble(operand)
	if !ok {
		return value
	}
	var r float64
	switch t.Kind {
	case chain.Add:
		r = a + b
	case chain.Subtract:
		r = a - b
	case chain.Multiply:
		r = a * b
	case chain.Divide:
		if b == 0 {
			return value
		}
		r = a / b
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return value
	}
	return FormatDouble(r)
}

// roundToInteger applies floor, half-up round or ceil and prints an integer.
func roundToInteger(k chain.Kind, value string) string {
	f, ok := ParseDouble(value)
	if !ok {
		return value
	}
	switch k {
	case chain.Floor:
		f = math.Floor(f)
	case chain.Round:
		f = math.Floor(f + 0.5)
	case chain.Ceil:
		f = math.Ceil(f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return value
	}
	return strconv.FormatInt(int64(f), 10)
}

// check implements the valid-integer and valid-double checks.
func check(t chain.Transformation, value string, args [3]string) string {
	var ok bool
	if t.Kind == chain.IsInt {
		_, ok = ParseInt(value)
	} else {
		_, ok = ParseDouble(value)
	}
	if t.Negate {
		ok = !ok
	}
	if t.N == 0 {
		return strconv.FormatBool(ok)
	}
	if ok {
		return args[0]
	}
	return args[1]
}

// compareNumbers compares value with other as integers or as doubles within
// tolerance. The boolean is false when either side is not a number.
func compareNumbers(integer bool, value, other string, tolerance float64) (int, bool) {
	if integer {
		a, ok := ParseInt(value)
		if !ok {
			return 0, false
		}
		b, ok := ParseInt(other)
		if !ok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}

	a, ok := ParseDouble(value)
	if !ok {
		return 0, false
	}
	b, ok := ParseDouble(other)
	if !ok {
		return 0, false
	}
	switch {
	case math.Abs(a-b) <= math.Max(tolerance, 0):
		return 0, true
	case a < b:
		return -1, true
	}
	return 1, true
}
