package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oddsmith/anchorline/internal/names"
)

// DeterministicID derives a stable event ID from the normalized identity
// tuple. Identical inputs always yield the same ID across processes and
// restarts, so it is safe to call unconditionally as a fallback when
// resolution fails: re-ingesting the same event can only re-derive the same
// row, never create a duplicate.
//
// Commence time is truncated to the minute before hashing to absorb
// second-level provider noise.
func DeterministicID(homeName, awayName string, commence time.Time, league string) string {
	tuple := fmt.Sprintf("%s|%s|%s|%d",
		names.Normalize(league),
		names.Normalize(homeName),
		names.Normalize(awayName),
		commence.UTC().Truncate(time.Minute).Unix(),
	)
	sum := sha256.Sum256([]byte(tuple))
	return "evt_" + hex.EncodeToString(sum[:])[:20]
}
