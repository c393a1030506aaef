// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package stdlib embeds the prelude document loaded into every session.
package stdlib

import _ "embed"

// PreludeFile is the name the prelude is reported under in diagnostics.
const PreludeFile = "prelude.hcl"

// Prelude declares the constants every document can refer to.
//
//go:embed prelude.hcl
var Prelude string
