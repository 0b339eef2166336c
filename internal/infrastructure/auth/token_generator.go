package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/you/branchauth/domain"
)

// tokenBytes gives 256 bits of entropy per token
const tokenBytes = 32

// TokenGeneratorImpl implements domain.TokenGenerator using a CSPRNG.
// Raw tokens are base64url strings; only the sha256 hash is persisted.
type TokenGeneratorImpl struct{}

// NewTokenGenerator creates a new opaque token generator
func NewTokenGenerator() domain.TokenGenerator {
	return &TokenGeneratorImpl{}
}

// Generate implements domain.TokenGenerator
func (g *TokenGeneratorImpl) Generate() (string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, g.HashOf(raw), nil
}

// HashOf implements domain.TokenGenerator
func (g *TokenGeneratorImpl) HashOf(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
