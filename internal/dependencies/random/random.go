package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Random provides random identifier generation that can be mocked for testing
type Random interface {
	// Token returns n random bytes, hex encoded
	Token(n int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token returns a cryptographically random hex token of n bytes
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
