package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashReader computes the SHA-256 of everything readable from r. Used to
// fingerprint uploaded documents so identical re-uploads are recognizable in
// audits.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hex digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
