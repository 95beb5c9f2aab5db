package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare ok", func(t *testing.T) {
		hash, err := hasher.Hash("StrongEnoughPassword")
		require.NoError(t, err)
		require.NotEqual(t, "StrongEnoughPassword", hash, "plaintext should never be stored")

		require.NoError(t, hasher.Compare(hash, "StrongEnoughPassword"))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		hash, err := hasher.Hash("StrongEnoughPassword")
		require.NoError(t, err)

		require.Error(t, hasher.Compare(hash, "WrongPassword"))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		first, err := hasher.Hash("StrongEnoughPassword")
		require.NoError(t, err)
		second, err := hasher.Hash("StrongEnoughPassword")
		require.NoError(t, err)

		require.NotEqual(t, first, second)
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("opaque-refresh-token")

	assert.Len(t, fp, 64, "sha256 hex digest expected")
	assert.Equal(t, fp, FingerprintToken("opaque-refresh-token"), "fingerprint should be stable")
	assert.NotEqual(t, fp, FingerprintToken("another-token"))
}

func TestGravatarURL(t *testing.T) {
	t.Parallel()

	url := GravatarURL("NK@Example.com ")

	assert.Equal(t, url, GravatarURL("nk@example.com"), "email should be normalized before hashing")
	assert.Contains(t, url, "https://www.gravatar.com/avatar/")
}
