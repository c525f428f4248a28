package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
)

const (
	testRPID   = "acme.example"
	testOrigin = "https://acme.example"
)

// authenticator is a software stand-in for a security key.
type authenticator struct {
	t      *testing.T
	key    *ecdsa.PrivateKey
	credID []byte
}

func newAuthenticator(t *testing.T) *authenticator {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &authenticator{t: t, key: key, credID: []byte("credential-0001")}
}

func (a *authenticator) id() string { return base64.RawURLEncoding.EncodeToString(a.credID) }

// coseKey encodes the public key the way an authenticator attests it.
func (a *authenticator) coseKey() []byte {
	raw, err := a.key.PublicKey.Bytes()
	require.NoError(a.t, err)
	out, err := webauthncbor.Marshal(webauthncose.EC2PublicKeyData{
		PublicKeyData: webauthncose.PublicKeyData{
			KeyType:   int64(webauthncose.EllipticKey),
			Algorithm: int64(webauthncose.AlgES256),
		},
		Curve:  int64(webauthncose.P256),
		XCoord: raw[1:33],
		YCoord: raw[33:65],
	})
	require.NoError(a.t, err)
	return out
}

func (a *authenticator) authData(flags protocol.AuthenticatorFlags, counter uint32, attested bool) []byte {
	rp := sha256.Sum256([]byte(testRPID))
	out := append([]byte{}, rp[:]...)
	out = append(out, byte(flags))
	out = binary.BigEndian.AppendUint32(out, counter)
	if attested {
		out = append(out, make([]byte, 16)...) // zero aaguid
		out = binary.BigEndian.AppendUint16(out, uint16(len(a.credID)))
		out = append(out, a.credID...)
		out = append(out, a.coseKey()...)
	}
	return out
}

func clientDataJSON(t *testing.T, typ protocol.CeremonyType, challenge string) []byte {
	raw, err := json.Marshal(map[string]string{"type": string(typ), "challenge": challenge, "origin": testOrigin})
	require.NoError(t, err)
	return raw
}

func (a *authenticator) register(userID, challenge string) RegistrationResponse {
	att, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": a.authData(protocol.FlagUserPresent|protocol.FlagAttestedCredentialData, 0, true),
	})
	require.NoError(a.t, err)
	pub, err := x509.MarshalPKIXPublicKey(&a.key.PublicKey)
	require.NoError(a.t, err)

	return RegistrationResponse{
		UserID:            userID,
		CredentialID:      a.id(),
		PublicKey:         pub,
		AttestationObject: att,
		ClientDataJSON:    clientDataJSON(a.t, protocol.CreateCeremony, challenge),
		Name:              "YubiKey",
	}
}

func (a *authenticator) assert(userID, challenge string, counter uint32) AssertionResponse {
	ad := a.authData(protocol.FlagUserPresent, counter, false)
	cd := clientDataJSON(a.t, protocol.AssertCeremony, challenge)
	cdHash := sha256.Sum256(cd)
	digest := sha256.Sum256(append(append([]byte{}, ad...), cdHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	require.NoError(a.t, err)

	return AssertionResponse{
		UserID:            userID,
		CredentialID:      a.id(),
		AuthenticatorData: ad,
		ClientDataJSON:    cd,
		Signature:         sig,
		Counter:           counter,
	}
}

func newWebAuthn(e *env) *WebAuthnService {
	return &WebAuthnService{
		Store:   e.store,
		Cache:   e.cache,
		Config:  WebAuthnConfig{RPID: testRPID, RPName: "Acme", Origin: testOrigin},
		Metrics: metrics.New(),
	}
}

func TestWebAuthnCeremonies(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newWebAuthn(e)
	key := newAuthenticator(t)

	_, err := svc.CreateAuthenticationChallenge(e.ctx, e.user.ID)
	require.ErrorIs(t, err, ErrNoCredentials)

	opts, err := svc.CreateRegistrationChallenge(e.ctx, e.user.ID, "alice", "")
	require.NoError(t, err)
	require.Equal(t, testRPID, opts.RP.ID)
	require.Equal(t, "alice", opts.User.DisplayName)
	require.Len(t, opts.PubKeyCredParams, 3)

	cred, err := svc.CompleteRegistration(e.ctx, key.register(e.user.ID, opts.Challenge))
	require.NoError(t, err)
	require.Equal(t, key.id(), cred.CredentialID)
	require.Equal(t, "00000000-0000-0000-0000-000000000000", cred.AAGUID)
	require.Equal(t, key.coseKey(), cred.PublicKey)

	t.Run("challenge is single use", func(t *testing.T) {
		_, err := svc.CompleteRegistration(e.ctx, key.register(e.user.ID, opts.Challenge))
		require.ErrorIs(t, err, ErrChallengeNotFound)
	})

	authenticate := func(counter uint32) error {
		opts, err := svc.CreateAuthenticationChallenge(e.ctx, e.user.ID)
		require.NoError(t, err)
		require.Len(t, opts.AllowCredentials, 1)
		_, err = svc.CompleteAuthentication(e.ctx, key.assert(e.user.ID, opts.Challenge, counter))
		return err
	}

	require.NoError(t, authenticate(1))
	require.ErrorIs(t, authenticate(1), ErrWebAuthnFailed, "replayed counter")
	require.NoError(t, authenticate(5))
	require.ErrorIs(t, authenticate(3), ErrWebAuthnFailed, "counter went backwards")

	stored, err := e.store.WebAuthnCredentials().GetCredentialByCredentialID(e.ctx, key.id())
	require.NoError(t, err)
	require.Equal(t, uint32(5), stored.Counter)
	require.NotNil(t, stored.LastUsedAt)

	msgs, err := e.store.Outbox().ListEligible(e.ctx, time.Now().Add(time.Second), 5, 10)
	require.NoError(t, err)
	var types []string
	for _, m := range msgs {
		types = append(types, m.MessageType)
	}
	require.Equal(t, []string{
		domain.EventWebAuthnCredentialRegistered,
		domain.EventWebAuthnAuthenticated,
		domain.EventWebAuthnAuthenticated,
	}, types)
}

func TestWebAuthnRejectsTampering(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newWebAuthn(e)
	key := newAuthenticator(t)

	opts, err := svc.CreateRegistrationChallenge(e.ctx, e.user.ID, "alice", "Alice")
	require.NoError(t, err)

	t.Run("wrong challenge at registration", func(t *testing.T) {
		_, err := svc.CompleteRegistration(e.ctx, key.register(e.user.ID, "forged"))
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("public key differs from attested key", func(t *testing.T) {
		resp := key.register(e.user.ID, opts.Challenge)
		other, err := x509.MarshalPKIXPublicKey(&newAuthenticator(t).key.PublicKey)
		require.NoError(t, err)
		resp.PublicKey = other
		_, err = svc.CompleteRegistration(e.ctx, resp)
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("wrong origin", func(t *testing.T) {
		resp := key.register(e.user.ID, opts.Challenge)
		resp.ClientDataJSON = []byte(`{"type":"webauthn.create","challenge":"` + opts.Challenge + `","origin":"https://evil.example"}`)
		_, err := svc.CompleteRegistration(e.ctx, resp)
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("attestation statement with format none", func(t *testing.T) {
		resp := key.register(e.user.ID, opts.Challenge)
		att, err := cbor.Marshal(map[string]any{
			"fmt":      "none",
			"attStmt":  map[string]any{"sig": []byte{1}},
			"authData": key.authData(protocol.FlagUserPresent|protocol.FlagAttestedCredentialData, 0, true),
		})
		require.NoError(t, err)
		resp.AttestationObject = att
		_, err = svc.CompleteRegistration(e.ctx, resp)
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	_, err = svc.CompleteRegistration(e.ctx, key.register(e.user.ID, opts.Challenge))
	require.NoError(t, err)

	challenge := func() string {
		opts, err := svc.CreateAuthenticationChallenge(e.ctx, e.user.ID)
		require.NoError(t, err)
		return opts.Challenge
	}

	t.Run("bad signature", func(t *testing.T) {
		resp := key.assert(e.user.ID, challenge(), 1)
		resp.Signature[len(resp.Signature)-1] ^= 0xff
		_, err := svc.CompleteAuthentication(e.ctx, resp)
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("counter differs from authenticator data", func(t *testing.T) {
		resp := key.assert(e.user.ID, challenge(), 1)
		resp.Counter = 9
		_, err := svc.CompleteAuthentication(e.ctx, resp)
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("signed by another key", func(t *testing.T) {
		impostor := newAuthenticator(t)
		_, err := svc.CompleteAuthentication(e.ctx, impostor.assert(e.user.ID, challenge(), 1))
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})

	t.Run("no pending challenge", func(t *testing.T) {
		e.mr.FlushAll()
		_, err := svc.CompleteAuthentication(e.ctx, key.assert(e.user.ID, "whatever", 1))
		require.ErrorIs(t, err, ErrWebAuthnFailed)
	})
}

func TestWebAuthnAssertionAcceptedOnce(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newWebAuthn(e)
	key := newAuthenticator(t)

	opts, err := svc.CreateRegistrationChallenge(e.ctx, e.user.ID, "alice", "")
	require.NoError(t, err)
	_, err = svc.CompleteRegistration(e.ctx, key.register(e.user.ID, opts.Challenge))
	require.NoError(t, err)

	auth, err := svc.CreateAuthenticationChallenge(e.ctx, e.user.ID)
	require.NoError(t, err)
	resp := key.assert(e.user.ID, auth.Challenge, 1)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CompleteAuthentication(e.ctx, resp); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, accepted.Load())
}
