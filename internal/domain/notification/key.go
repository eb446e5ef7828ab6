package notification

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DispatchKey derives the deterministic idempotency key for one approval
// transition. The same (session, transition, decision) triple always maps to
// the same key, so duplicate manager clicks and retried requests collapse
// onto a single ledger row.
func DispatchKey(sessionID, transition, decision string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", sessionID, transition, decision)))
	return hex.EncodeToString(sum[:])
}
