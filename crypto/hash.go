// Package crypto provides the content hashing and ed25519 signature
// primitives the ledger is built on. Hashes identify bets, matches and
// calls; signatures establish the sender of a call and prove the
// operator's off-line authorization of a match.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the SHA-256 digest of data as a lowercase hex string.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashBytes returns the raw SHA-256 digest of data.
func HashBytes(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
