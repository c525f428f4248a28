package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// These tests mutate process-wide master key state and therefore do not run
// in parallel.

func TestEncryptDecryptPrivateKey(t *testing.T) {
	t.Setenv(cryptox.MasterKeyEnv, "test-master-key")
	cryptox.ResetMasterKey()
	t.Cleanup(cryptox.ResetMasterKey)

	pemData, err := cryptox.GeneratePrivateKey(cryptox.KeyES256, 0)
	require.NoError(t, err)

	a, err := cryptox.EncryptPrivateKey(pemData)
	require.NoError(t, err)
	b, err := cryptox.EncryptPrivateKey(pemData)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "nonce must differ per encryption")

	plain, err := cryptox.DecryptPrivateKey(a)
	require.NoError(t, err)
	require.Equal(t, pemData, plain)
}

func TestDecryptRejectsTamperingAndShortInput(t *testing.T) {
	t.Setenv(cryptox.MasterKeyEnv, "test-master-key")
	cryptox.ResetMasterKey()
	t.Cleanup(cryptox.ResetMasterKey)

	sealed, err := cryptox.EncryptPrivateKey([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = cryptox.DecryptPrivateKey(sealed)
	require.Error(t, err)

	_, err = cryptox.DecryptPrivateKey([]byte("short"))
	require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)
}

func TestMasterKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file-based-master-key"), 0o600))

	cryptox.SetMasterKeyPath(path)
	t.Cleanup(cryptox.ResetMasterKey)

	sealed, err := cryptox.EncryptPrivateKey([]byte("payload"))
	require.NoError(t, err)

	// A different key must not open the payload.
	t.Setenv(cryptox.MasterKeyEnv, "another-key")
	cryptox.ResetMasterKey()
	_, err = cryptox.DecryptPrivateKey(sealed)
	require.Error(t, err)

	cryptox.SetMasterKeyPath(path)
	plain, err := cryptox.DecryptPrivateKey(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), plain)
}
