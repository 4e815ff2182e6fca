package sessions

import (
	"github.com/google/wire"

	"castive/internal/cache"
)

// ProvideLedger is a Wire provider function that creates the token Ledger.
func ProvideLedger(store cache.Store) *Ledger {
	return NewLedger(store)
}

var Set = wire.NewSet(
	ProvideLedger,
	NewManager,
)
