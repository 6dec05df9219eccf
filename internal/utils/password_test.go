package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	require.True(t, VerifyPassword(hash, "secret1"))
	require.False(t, VerifyPassword(hash, "secret2"))
	require.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordSalted(t *testing.T) {
	// Two hashes of the same input must differ; bcrypt salts internally.
	h1, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
	require.True(t, VerifyPassword(h1, "secret1"))
	require.True(t, VerifyPassword(h2, "secret1"))
}
