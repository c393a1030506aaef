// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package variable

import (
	"fmt"

	"nickandperla.net/varchain/internal/eval"
)

// SelfReferenceError reports a variable whose base expression names itself.
type SelfReferenceError struct {
	ID string
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("variable %q cannot use itself as its base", e.ID)
}

// CycleError reports a variable whose value was requested while it was
// still being computed, through a loop of references to other entities.
type CycleError struct {
	ID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle through variable %q", e.ID)
}

// UnresolvedReferenceError reports an identifier the resolver does not know.
type UnresolvedReferenceError = eval.UnresolvedReferenceError

// ErrNotFound is the sentinel a resolver returns for unknown identifiers.
var ErrNotFound = eval.ErrNotFound
