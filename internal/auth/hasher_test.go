package auth

import (
	"strings"
	"testing"

	"registrar/internal/apperror"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("correct horse")
	require.NoError(t, err)
	second, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, first, second, "salted")
	require.NotEqual(t, "correct horse", first)

	ok, err := h.Verify("correct horse", first)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("wrong horse", first)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_EmptySecret(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	require.ErrorIs(t, err, ErrEmptySecret)
	require.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}

func TestHasher_CorruptHash(t *testing.T) {
	ok, err := NewHasher(bcrypt.MinCost).Verify("secret", "not-a-bcrypt-hash")
	require.False(t, ok)
	require.ErrorIs(t, err, ErrCorruptHash)
}

func TestHasher_LongSecretsBindEveryByte(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	prefix := strings.Repeat("x", 100)

	hashed, err := h.Hash(prefix + "A")
	require.NoError(t, err)

	ok, err := h.Verify(prefix+"A", hashed)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(prefix+"B", hashed)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	require.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
}
