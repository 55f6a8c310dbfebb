package application

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	adminTokenSaltLength  = 16
	adminTokenKeyLength   = 32
	adminTokenIterations  = 3
	adminTokenMemory      = 64 * 1024
	adminTokenParallelism = 2
)

// AdminToken verifies the shared secret guarding administrative endpoints.
// The configured token is hashed once at startup; the plaintext is not kept
// in memory and comparisons are constant time.
type AdminToken struct {
	salt []byte
	hash []byte
}

// NewAdminToken derives the verifier from the configured secret. An empty
// secret returns nil, which disables administrative access entirely.
func NewAdminToken(token string) (*AdminToken, error) {
	if token == "" {
		return nil, nil
	}

	salt := make([]byte, adminTokenSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate admin token salt: %w", err)
	}

	return &AdminToken{
		salt: salt,
		hash: deriveAdminKey(token, salt),
	}, nil
}

// Verify reports whether the candidate matches the configured secret. A nil
// verifier rejects everything.
func (t *AdminToken) Verify(candidate string) bool {
	if t == nil || candidate == "" {
		return false
	}
	derived := deriveAdminKey(candidate, t.salt)
	return subtle.ConstantTimeCompare(derived, t.hash) == 1
}

func deriveAdminKey(token string, salt []byte) []byte {
	return argon2.IDKey([]byte(token), salt, adminTokenIterations, adminTokenMemory, adminTokenParallelism, adminTokenKeyLength)
}
