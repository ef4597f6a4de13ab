package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"registrar/internal/apperror"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past this many bytes
const maxBcryptInput = 72

var (
	// ErrEmptySecret is returned when hashing an empty secret
	ErrEmptySecret = apperror.InvalidInput("secret must not be empty")
	// ErrCorruptHash indicates a stored hash that bcrypt cannot parse
	ErrCorruptHash = errors.New("corrupt password hash")
)

// Hasher hashes and verifies passwords, security answers and refresh tokens
type Hasher struct {
	cost int
}

// NewHasher creates a bcrypt hasher. Out of range costs fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of secret
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	hashed, err := bcrypt.GenerateFromPassword(prepare(secret), h.cost)
	if err != nil {
		return "", apperror.Storage(err)
	}
	return string(hashed), nil
}

// Verify reports whether secret matches hashed. A wrong secret is not an
// error; only an unparseable stored hash is.
func (h *Hasher) Verify(secret, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), prepare(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperror.Storage(errors.Join(ErrCorruptHash, err))
	}
}

// prepare binds every byte of long secrets such as signed refresh tokens,
// which would otherwise be truncated by bcrypt.
func prepare(secret string) []byte {
	if len(secret) <= maxBcryptInput {
		return []byte(secret)
	}
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
