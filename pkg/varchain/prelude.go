package varchain

import "nickandperla.net/varchain/internal/stdlib"

// DefaultPrelude contains the constants that are automatically loaded
// unless WithNoStdlib is given. Documents may redeclare any of them.
var DefaultPrelude = stdlib.Prelude
