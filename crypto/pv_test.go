package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/require"
)

func TestSecretPV(t *testing.T) {
	a := NewSecretPV("correct horse")
	b := NewSecretPV("correct horse")
	require.Equal(t, a.Address(), b.Address())
	require.NotEqual(t, a.Address(), NewSecretPV("battery staple").Address())

	sig, err := a.Sign([]byte("msg"))
	require.NoError(t, err)
	require.True(t, ed25519.PubKey(a.PublicKey()).VerifySignature([]byte("msg"), sig))

	path := filepath.Join(t.TempDir(), "identity_secret")
	require.NoError(t, os.WriteFile(path, []byte("correct horse\n"), 0o600))
	c, err := LoadSecretPV(path)
	require.NoError(t, err)
	require.Equal(t, a.Address(), c.Address())

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = LoadSecretPV(path)
	require.Error(t, err)
}
