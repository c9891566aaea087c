package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hashed, err := HashPassword("worker-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "worker-pass", hashed)
	assert.True(t, CheckPasswordHash("worker-pass", hashed))
	assert.False(t, CheckPasswordHash("Worker-pass", hashed))
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73))

	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestCheckPasswordHash_InvalidHash(t *testing.T) {
	assert.False(t, CheckPasswordHash("password123", "not-a-bcrypt-hash"))
}
