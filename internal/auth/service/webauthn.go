package service

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/google/uuid"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const (
	WebAuthnChallengeTTL = 5 * time.Minute
	webAuthnTimeoutMS    = 60000

)

// Offered at registration, in order of preference.
var webAuthnAlgorithms = []webauthncose.COSEAlgorithmIdentifier{
	webauthncose.AlgES256,
	webauthncose.AlgRS256,
	webauthncose.AlgEdDSA,
}

var (
	ErrChallengeNotFound = errors.New("challenge_not_found")
	ErrNoCredentials     = errors.New("no_credentials")
	ErrCredentialExists  = errors.New("credential_exists")

	// ErrWebAuthnFailed is the only failure callers see for a rejected
	// ceremony; the reason goes to the log and the failure metric.
	ErrWebAuthnFailed = errors.New("webauthn_failed")
)

type WebAuthnConfig struct {
	RPID   string
	RPName string
	Origin string
}

type WebAuthnService struct {
	Store   store.Store
	Cache   cache.Cache
	Config  WebAuthnConfig
	Metrics *metrics.Metrics
}

type RelyingParty struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type WebAuthnUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type PubKeyCredParam struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

type RegistrationOptions struct {
	Challenge        string            `json:"challenge"`
	RP               RelyingParty      `json:"rp"`
	User             WebAuthnUser      `json:"user"`
	PubKeyCredParams []PubKeyCredParam `json:"pubKeyCredParams"`
	Timeout          int               `json:"timeout"`
	Attestation      string            `json:"attestation"`
}

type AllowedCredential struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports"`
}

type AuthenticationOptions struct {
	Challenge        string              `json:"challenge"`
	RPID             string              `json:"rpId"`
	AllowCredentials []AllowedCredential `json:"allowCredentials"`
	UserVerification string              `json:"userVerification"`
	Timeout          int                 `json:"timeout"`
}

// RegistrationResponse is what the browser returns from
// navigator.credentials.create, already base64 decoded.
type RegistrationResponse struct {
	UserID            string
	CredentialID      string // base64url
	PublicKey         []byte // optional SPKI DER, checked against the attested key
	Counter           uint32
	AttestationObject []byte
	ClientDataJSON    []byte
	Name              string
}

// AssertionResponse is what the browser returns from
// navigator.credentials.get, already base64 decoded.
type AssertionResponse struct {
	UserID            string
	CredentialID      string
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
	Counter           uint32
}

func (s *WebAuthnService) CreateRegistrationChallenge(ctx context.Context, userID, name, displayName string) (RegistrationOptions, error) {
	challenge, err := s.newChallenge(ctx, cache.WebAuthnRegisterKey(userID))
	if err != nil {
		return RegistrationOptions{}, err
	}

	params := make([]PubKeyCredParam, 0, len(webAuthnAlgorithms))
	for _, alg := range webAuthnAlgorithms {
		params = append(params, PubKeyCredParam{Type: "public-key", Alg: int(alg)})
	}
	if displayName == "" {
		displayName = name
	}
	return RegistrationOptions{
		Challenge:        challenge,
		RP:               RelyingParty{Name: s.Config.RPName, ID: s.Config.RPID},
		User:             WebAuthnUser{ID: base64.RawURLEncoding.EncodeToString([]byte(userID)), Name: name, DisplayName: displayName},
		PubKeyCredParams: params,
		Timeout:          webAuthnTimeoutMS,
		Attestation:      "direct",
	}, nil
}

func (s *WebAuthnService) CompleteRegistration(ctx context.Context, resp RegistrationResponse) (domain.WebAuthnCredential, error) {
	key := cache.WebAuthnRegisterKey(resp.UserID)
	challenge, err := s.pendingChallenge(ctx, key)
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	attested, err := s.checkRegistration(resp, challenge)
	if err != nil {
		return domain.WebAuthnCredential{}, s.fail(ctx, "registration", resp.UserID, err)
	}
	if err := s.consumeChallenge(ctx, key, challenge); err != nil {
		return domain.WebAuthnCredential{}, err
	}

	now := time.Now().UTC()
	cred, ev := domain.NewWebAuthnCredential(domain.NewWebAuthnCredentialParams{
		ID:           idx.NewAt(now).String(),
		UserID:       resp.UserID,
		CredentialID: resp.CredentialID,
		PublicKey:    attested.publicKey,
		Counter:      attested.counter,
		Name:         strings.TrimSpace(resp.Name),
		AAGUID:       attested.aaguid,
	}, now)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.WebAuthnCredentials().CreateCredential(ctx, cred); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrCredentialExists
			}
			return err
		}
		return enqueue(ctx, tx, now, ev)
	})
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	slogx.FromContext(ctx).Info("webauthn credential registered", "user_id", resp.UserID, "credential_id", cred.CredentialID)
	return cred, nil
}

// attestedCredential is what a verified registration yields.
type attestedCredential struct {
	publicKey []byte // COSE_Key
	aaguid    string
	counter   uint32
}

// checkRegistration validates the client data and the attestation object.
// Formats other than "none" have their statement verified; no metadata
// service is consulted.
func (s *WebAuthnService) checkRegistration(resp RegistrationResponse, challenge string) (attestedCredential, error) {
	if resp.CredentialID == "" {
		return attestedCredential{}, reason("credential_id", "missing")
	}
	if err := s.checkClientData(resp.ClientDataJSON, protocol.CreateCeremony, challenge); err != nil {
		return attestedCredential{}, err
	}

	var att protocol.AttestationObject
	if err := webauthncbor.Unmarshal(resp.AttestationObject, &att); err != nil {
		return attestedCredential{}, reason("attestation", "cbor: "+err.Error())
	}
	if err := att.AuthData.Unmarshal(att.RawAuthData); err != nil {
		return attestedCredential{}, reason("authenticator_data", describe(err))
	}
	if !att.AuthData.Flags.HasAttestedCredentialData() {
		return attestedCredential{}, reason("authenticator_data", "no attested credential")
	}
	clientHash := sha256.Sum256(resp.ClientDataJSON)
	if err := att.Verify(s.Config.RPID, clientHash[:], false, true, nil, credentialParameters()); err != nil {
		return attestedCredential{}, reason("attestation", describe(err))
	}

	data := att.AuthData.AttData
	if base64.RawURLEncoding.EncodeToString(data.CredentialID) != resp.CredentialID {
		return attestedCredential{}, reason("credential_id", "does not match attested credential")
	}
	if att.AuthData.Counter != resp.Counter {
		return attestedCredential{}, reason("counter", "does not match authenticator data")
	}
	if len(resp.PublicKey) > 0 {
		if err := matchPublicKey(data.CredentialPublicKey, resp.PublicKey); err != nil {
			return attestedCredential{}, reason("public_key", err.Error())
		}
	}

	out := attestedCredential{publicKey: data.CredentialPublicKey, counter: att.AuthData.Counter}
	if len(data.AAGUID) > 0 {
		id, err := uuid.FromBytes(data.AAGUID)
		if err != nil {
			return attestedCredential{}, reason("authenticator_data", "aaguid")
		}
		out.aaguid = id.String()
	}
	return out, nil
}

func credentialParameters() []protocol.CredentialParameter {
	out := make([]protocol.CredentialParameter, 0, len(webAuthnAlgorithms))
	for _, alg := range webAuthnAlgorithms {
		out = append(out, protocol.CredentialParameter{Type: protocol.PublicKeyCredentialType, Algorithm: alg})
	}
	return out
}

func (s *WebAuthnService) CreateAuthenticationChallenge(ctx context.Context, userID string) (AuthenticationOptions, error) {
	creds, err := s.Store.WebAuthnCredentials().ListActiveUserCredentials(ctx, userID)
	if err != nil {
		return AuthenticationOptions{}, err
	}
	if len(creds) == 0 {
		return AuthenticationOptions{}, ErrNoCredentials
	}

	challenge, err := s.newChallenge(ctx, cache.WebAuthnAuthKey(userID))
	if err != nil {
		return AuthenticationOptions{}, err
	}

	allow := make([]AllowedCredential, 0, len(creds))
	for _, c := range creds {
		allow = append(allow, AllowedCredential{
			Type:       "public-key",
			ID:         c.CredentialID,
			Transports: []string{"usb", "nfc", "ble", "internal"},
		})
	}
	return AuthenticationOptions{
		Challenge:        challenge,
		RPID:             s.Config.RPID,
		AllowCredentials: allow,
		UserVerification: "preferred",
		Timeout:          webAuthnTimeoutMS,
	}, nil
}

// CompleteAuthentication verifies an assertion and advances the signature
// counter. A counter that does not increase is always rejected.
func (s *WebAuthnService) CompleteAuthentication(ctx context.Context, resp AssertionResponse) (domain.WebAuthnCredential, error) {
	key := cache.WebAuthnAuthKey(resp.UserID)
	challenge, err := s.pendingChallenge(ctx, key)
	if errors.Is(err, ErrChallengeNotFound) {
		return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, reason("challenge", "none pending"))
	}
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	cred, err := s.Store.WebAuthnCredentials().GetCredentialByCredentialID(ctx, resp.CredentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, reason("credential", "unknown"))
		}
		return domain.WebAuthnCredential{}, err
	}

	if err := s.checkAssertion(cred, resp, challenge); err != nil {
		return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, err)
	}
	if err := s.consumeChallenge(ctx, key, challenge); errors.Is(err, ErrChallengeNotFound) {
		return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, reason("challenge", "already used"))
	} else if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	now := time.Now().UTC()
	ev, err := cred.AdvanceCounter(resp.Counter, now)
	if err != nil {
		return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, reason("counter", "did not increase"))
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.WebAuthnCredentials().UpdateCounter(ctx, cred.ID, cred.Counter, now); err != nil {
			return err
		}
		return enqueue(ctx, tx, now, ev)
	})
	if errors.Is(err, domain.ErrCounterNotIncreased) {
		return domain.WebAuthnCredential{}, s.fail(ctx, "authentication", resp.UserID, reason("counter", "lost race"))
	}
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	return cred, nil
}

func (s *WebAuthnService) checkAssertion(cred domain.WebAuthnCredential, resp AssertionResponse, challenge string) error {
	if !cred.IsActive {
		return reason("credential", "inactive")
	}
	if cred.UserID != resp.UserID {
		return reason("credential", "belongs to another user")
	}
	if err := s.checkClientData(resp.ClientDataJSON, protocol.AssertCeremony, challenge); err != nil {
		return err
	}

	var ad protocol.AuthenticatorData
	if err := ad.Unmarshal(resp.AuthenticatorData); err != nil {
		return reason("authenticator_data", describe(err))
	}
	rpIDHash := sha256.Sum256([]byte(s.Config.RPID))
	if err := ad.Verify(rpIDHash[:], nil, false, true); err != nil {
		return reason("rp_id_hash", describe(err))
	}
	if ad.Counter != resp.Counter {
		return reason("counter", "does not match authenticator data")
	}

	key, err := webauthncose.ParsePublicKey(cred.PublicKey)
	if err != nil {
		return reason("public_key", describe(err))
	}
	clientHash := sha256.Sum256(resp.ClientDataJSON)
	signed := append(slices.Clip(resp.AuthenticatorData), clientHash[:]...)
	if ok, err := webauthncose.VerifySignature(key, signed, resp.Signature); err != nil || !ok {
		return reason("signature", "invalid")
	}
	return nil
}

func (s *WebAuthnService) checkClientData(raw []byte, ceremony protocol.CeremonyType, challenge string) error {
	var cd protocol.CollectedClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return reason("client_data", "malformed")
	}
	if err := cd.Verify(challenge, ceremony, []string{s.Config.Origin}, nil, protocol.TopOriginIgnoreVerificationMode); err != nil {
		return reason("client_data", describe(err))
	}
	return nil
}

func (s *WebAuthnService) newChallenge(ctx context.Context, key string) (string, error) {
	challenge, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	if err := s.Cache.Set(ctx, key, []byte(challenge), WebAuthnChallengeTTL); err != nil {
		return "", fmt.Errorf("store webauthn challenge: %w", err)
	}
	return challenge, nil
}

func (s *WebAuthnService) pendingChallenge(ctx context.Context, key string) (string, error) {
	v, err := s.Cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load webauthn challenge: %w", err)
	}
	return string(v), nil
}

// consumeChallenge removes the pending challenge if it is still the one that
// was verified. Of two concurrent completions only one gets past here.
func (s *WebAuthnService) consumeChallenge(ctx context.Context, key, challenge string) error {
	ok, err := s.Cache.DeleteIfEqual(ctx, key, []byte(challenge))
	if err != nil {
		return fmt.Errorf("consume webauthn challenge: %w", err)
	}
	if !ok {
		return ErrChallengeNotFound
	}
	return nil
}

// fail logs the specific reason and hands back the uniform error.
func (s *WebAuthnService) fail(ctx context.Context, ceremony, userID string, err error) error {
	label := "other"
	var r *failureReason
	if errors.As(err, &r) {
		label = r.kind
	}
	s.Metrics.WebAuthnFailure(label)
	slogx.FromContext(ctx).Warn("webauthn "+ceremony+" rejected", "user_id", userID, "reason", err.Error())
	return ErrWebAuthnFailed
}

type failureReason struct {
	kind   string
	detail string
}

func (r *failureReason) Error() string { return r.kind + ": " + r.detail }

func reason(kind, detail string) error { return &failureReason{kind: kind, detail: detail} }

// describe flattens a protocol error into one log line.
func describe(err error) string {
	var pe *protocol.Error
	if errors.As(err, &pe) && pe.DevInfo != "" {
		return pe.Details + ": " + pe.DevInfo
	}
	return err.Error()
}

// matchPublicKey checks that a PKIX key sent alongside the attestation is the
// attested credential key.
func matchPublicKey(coseKey, pkix []byte) error {
	given, err := cryptox.ParsePublicKey(pkix)
	if err != nil {
		return err
	}
	attested, err := coseToPublicKey(coseKey)
	if err != nil {
		return err
	}
	k, ok := attested.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !k.Equal(given) {
		return errors.New("does not match attested key")
	}
	return nil
}

func coseToPublicKey(raw []byte) (crypto.PublicKey, error) {
	parsed, err := webauthncose.ParsePublicKey(raw)
	if err != nil {
		return nil, err
	}
	switch k := parsed.(type) {
	case webauthncose.EC2PublicKeyData:
		return k.ToECDSA()
	case webauthncose.OKPPublicKeyData:
		if len(k.XCoord) != ed25519.PublicKeySize {
			return nil, errors.New("bad ed25519 key length")
		}
		return ed25519.PublicKey(k.XCoord), nil
	case webauthncose.RSAPublicKeyData:
		e := new(big.Int).SetBytes(k.Exponent)
		if !e.IsInt64() || e.Int64() > math.MaxInt32 {
			return nil, errors.New("bad rsa exponent")
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(k.Modulus), E: int(e.Int64())}, nil
	default:
		return nil, fmt.Errorf("unsupported key %T", parsed)
	}
}
