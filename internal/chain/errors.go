// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package chain

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed chain text. Compilation never recovers from
// one: the whole chain is rejected.
type SyntaxError struct {
	Op    string // Offending operation code, empty if none was read
	Pos   int    // Rune offset in Chain
	Msg   string
	Chain string
	Cause error
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	sb.WriteString("chain syntax error")
	if e.Op != "" {
		fmt.Fprintf(&sb, " in %q", e.Op)
	}
	fmt.Fprintf(&sb, " at offset %d: %s", e.Pos, e.Msg)
	if e.Chain != "" && !strings.ContainsAny(e.Chain, "\n\r") {
		pos := min(max(e.Pos, 0), len([]rune(e.Chain)))
		sb.WriteString("\n  ")
		sb.WriteString(e.Chain)
		sb.WriteString("\n  ")
		sb.WriteString(strings.Repeat(" ", pos))
		sb.WriteByte('^')
	}
	return sb.String()
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}
