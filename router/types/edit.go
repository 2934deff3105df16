package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EditHash derives the content-addressed token binding a pending edit to the
// exact parameters disclosed when it was started. completeEdit and cancelEdit
// recompute the hash from their arguments, so any mismatched parameter fails
// to find the pending record.
func EditHash(asset string, kind StrategyKind, source string, cfg StrategyConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", asset, kind, source)
	if cfg != nil {
		cfg.digest(h)
	}
	return hex.EncodeToString(h.Sum(nil))
}
