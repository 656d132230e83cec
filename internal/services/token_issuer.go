package services

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/charlesng35/teamseats/pkg/crypto"
)

// DefaultTokenBytes yields 128-bit invitation tokens.
const DefaultTokenBytes = 16

// TokenIssuer mints opaque invitation tokens.
type TokenIssuer interface {
	Issue() (string, error)
}

// RandomTokenIssuer reads tokens from a cryptographic random source.
type RandomTokenIssuer struct {
	size   int
	source io.Reader
}

// NewRandomTokenIssuer returns an issuer producing size-byte tokens. Sizes
// below DefaultTokenBytes are raised to it.
func NewRandomTokenIssuer(size int) *RandomTokenIssuer {
	if size < DefaultTokenBytes {
		size = DefaultTokenBytes
	}
	return &RandomTokenIssuer{size: size, source: rand.Reader}
}

// Issue returns a fresh URL-safe token.
func (i *RandomTokenIssuer) Issue() (string, error) {
	token, err := crypto.GenerateTokenFrom(i.source, i.size)
	if err != nil {
		return "", fmt.Errorf("token issuer: %w", err)
	}
	return token, nil
}
