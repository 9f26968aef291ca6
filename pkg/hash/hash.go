package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt so raw client addresses are never
// stored in rate limit keys.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, 100)
}

// EvaluationStamp fingerprints an item's scoring inputs together with the
// instant of evaluation. Two calls at different instants never match.
func EvaluationStamp(itemID int64, itemName, contentID string, at time.Time) string {
	return SHA256Hex(fmt.Sprintf("%d:%s:%s:%d", itemID, itemName, contentID, at.UnixNano()))
}
