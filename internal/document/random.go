// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package document

import (
	"math"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// draw picks a value for r.
func (r Random) draw(f *gofakeit.Faker) string {
	if len(r.Choices) > 0 {
		return f.RandomString(r.Choices)
	}
	if r.Step == 0 {
		return strconv.Itoa(f.IntRange(int(r.Min), int(r.Max)))
	}
	steps := int(math.Floor((r.Max-r.Min)/r.Step + 1e-9))
	v := r.Min + float64(f.IntRange(0, steps))*r.Step
	return strconv.FormatFloat(v, 'f', max(decimals(r.Min), decimals(r.Step)), 64)
}

// decimals returns the number of fractional digits in the shortest
// representation of f.
func decimals(f float64) int {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// pick draws the index of one of n options.
func pick(f *gofakeit.Faker, n int) int {
	if n <= 1 {
		return 0
	}
	return f.IntRange(0, n-1)
}
