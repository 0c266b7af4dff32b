package auth

import (
	"errors"
	"fmt"
)

// MinSecretLength is the minimum accepted length of the shared secret in bytes.
// HS256 keys shorter than the hash output weaken the MAC.
const MinSecretLength = 32

// SigningKey is the process-wide HMAC key. It is built once at startup and
// never mutated.
type SigningKey struct {
	material []byte
}

// NewSigningKey derives the signing key from the configured secret.
func NewSigningKey(secret string) (SigningKey, error) {
	if secret == "" {
		return SigningKey{}, errors.New("signing secret is empty")
	}
	if len(secret) < MinSecretLength {
		return SigningKey{}, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	material := make([]byte, len(secret))
	copy(material, secret)
	return SigningKey{material: material}, nil
}

// IsZero reports whether the key was never initialized.
func (k SigningKey) IsZero() bool {
	return len(k.material) == 0
}
