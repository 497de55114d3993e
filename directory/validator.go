package directory

import (
	"context"
	"crypto/subtle"

	"github.com/starshipcosmos/authstore/password"
	"github.com/starshipcosmos/authstore/principal"
)

// Validator checks a secret for an identifier the directory already resolved.
type Validator interface {
	Validate(ctx context.Context, identifier, secret string) (bool, error)
}

// SharedSecret accepts one fixed secret for every identifier.
type SharedSecret struct {
	secret []byte
}

// NewSharedSecret accepts secret for every identifier. An empty secret matches nothing.
func NewSharedSecret(secret string) SharedSecret {
	return SharedSecret{secret: []byte(secret)}
}

func (s SharedSecret) Validate(_ context.Context, _ string, secret string) (bool, error) {
	if len(s.secret) == 0 {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), s.secret) == 1, nil
}

// Argon2 verifies per-identifier argon2id hashes.
type Argon2 struct {
	hasher *password.Argon2
	hashes map[string]string
}

// NewArgon2 maps identifiers (normalized on insert) to PHC-encoded hashes.
func NewArgon2(hasher *password.Argon2, hashes map[string]string) *Argon2 {
	a := &Argon2{hasher: hasher, hashes: make(map[string]string, len(hashes))}
	for id, h := range hashes {
		a.hashes[principal.NormalizeIdentifier(id)] = h
	}
	return a
}

func (a *Argon2) Validate(_ context.Context, identifier, secret string) (bool, error) {
	encoded, ok := a.hashes[principal.NormalizeIdentifier(identifier)]
	if !ok {
		return false, nil
	}
	return a.hasher.Verify(secret, encoded)
}
