package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"testing"

	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParsePrivateKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		alg  string
		bits int
		is   func(any) bool
	}{
		{cryptox.KeyEdDSA, 0, func(k any) bool { _, ok := k.(ed25519.PrivateKey); return ok }},
		{cryptox.KeyES256, 0, func(k any) bool { _, ok := k.(*ecdsa.PrivateKey); return ok }},
		{cryptox.KeyRS256, 2048, func(k any) bool { _, ok := k.(*rsa.PrivateKey); return ok }},
	}

	for _, tc := range cases {
		t.Run(tc.alg, func(t *testing.T) {
			t.Parallel()

			pemData, err := cryptox.GeneratePrivateKey(tc.alg, tc.bits)
			require.NoError(t, err)
			require.Contains(t, string(pemData), "BEGIN PRIVATE KEY")

			key, err := cryptox.ParsePrivateKey(pemData)
			require.NoError(t, err)
			require.True(t, tc.is(key))
		})
	}
}

func TestGeneratePrivateKeyRejects(t *testing.T) {
	t.Parallel()

	_, err := cryptox.GeneratePrivateKey(cryptox.KeyRS256, 1024)
	require.Error(t, err)

	_, err = cryptox.GeneratePrivateKey("HS256", 0)
	require.ErrorIs(t, err, cryptox.ErrUnsupportedKey)

	_, err = cryptox.ParsePrivateKey([]byte("not pem"))
	require.Error(t, err)
}
