package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := NewBox("unit-test-key")
	require.NoError(t, err)

	token, err := box.Encrypt("sk-very-secret")
	require.NoError(t, err)
	require.NotEqual(t, "sk-very-secret", token)
	require.Contains(t, token, ":")

	require.Equal(t, "sk-very-secret", box.Decrypt(token))
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	box, err := NewBox("unit-test-key")
	require.NoError(t, err)

	a, err := box.Encrypt("same value")
	require.NoError(t, err)
	b, err := box.Encrypt("same value")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecryptPassesThroughLegacyValues(t *testing.T) {
	box, err := NewBox("unit-test-key")
	require.NoError(t, err)

	// Plain values written before encryption was enabled come back unchanged.
	require.Equal(t, "sk-plain-key", box.Decrypt("sk-plain-key"))
	require.Equal(t, "", box.Decrypt(""))
}

func TestDecryptTamperedToken(t *testing.T) {
	box, err := NewBox("unit-test-key")
	require.NoError(t, err)

	token, err := box.Encrypt("sk-very-secret")
	require.NoError(t, err)

	parts := strings.SplitN(token, ":", 2)
	tampered := parts[0] + ":" + strings.Repeat("00", len(parts[1])/2)

	// A corrupted token falls back to the raw value rather than erroring.
	require.Equal(t, tampered, box.Decrypt(tampered))
}

func TestDifferentKeysDoNotOpen(t *testing.T) {
	a, err := NewBox("key-a")
	require.NoError(t, err)
	b, err := NewBox("key-b")
	require.NoError(t, err)

	token, err := a.Encrypt("sk-very-secret")
	require.NoError(t, err)
	require.Equal(t, token, b.Decrypt(token))
}
