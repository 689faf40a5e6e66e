package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Fingerprint returns the hex SHA-256 of the RFC 8785 canonical form of a
// raw record. Two records that differ only in key order or insignificant
// whitespace share a fingerprint, so it is a safe memoization and
// retransmission-dedup key for the pure validator and flattener.
func Fingerprint(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
