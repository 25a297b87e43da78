package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEntryID computes a deterministic history entry_id using SHA256.
// Formula: SHA256(session_id|week)
// Returns hex-encoded hash (64 characters).
func ComputeEntryID(sessionID string, week int) string {
	data := fmt.Sprintf("%s|%d", sessionID, week)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
