package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

const DefaultKeyGracePeriod = 30 * 24 * time.Hour

// KeyService keeps the in-memory key ring in step with the signing_keys
// table. Private keys are sealed with the master key before they are stored.
type KeyService struct {
	Store       store.Store
	Ring        *jwtx.KeyRing
	Algorithm   string
	RSABits     int
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// Load publishes every valid stored key and activates the active one. On an
// empty table a first key is generated.
func (s *KeyService) Load(ctx context.Context) error {
	keys, err := s.Store.SigningKeys().ListValidSigningKeys(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list signing keys: %w", err)
	}

	var active bool
	for _, k := range keys {
		signer, err := openSigner(k)
		if err != nil {
			s.Logger.Error("skipping unreadable signing key", "kid", k.Kid, "error", err)
			continue
		}
		if k.IsActive {
			if err := s.Ring.Activate(signer); err != nil {
				return err
			}
			active = true
			continue
		}
		if err := s.Ring.AddVerificationKey(signer); err != nil {
			return err
		}
	}

	if active {
		s.Logger.Info("signing keys loaded", "count", len(keys))
		return nil
	}
	_, err = s.Rotate(ctx)
	return err
}

// KeyRotation is the result of Rotate.
type KeyRotation struct {
	NewKey      domain.SigningKey  `json:"new_key"`
	PreviousKey *domain.SigningKey `json:"previous_key,omitempty"`
}

// Rotate generates a key, demotes the current active key to previous for the
// grace period and activates the new one. Both events go to the outbox.
func (s *KeyService) Rotate(ctx context.Context) (KeyRotation, error) {
	kid, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return KeyRotation{}, err
	}
	signer, pemKey, err := jwtx.GenerateSigner(s.Algorithm, kid, s.RSABits)
	if err != nil {
		return KeyRotation{}, fmt.Errorf("generate signing key: %w", err)
	}
	sealed, err := cryptox.EncryptPrivateKey(pemKey)
	if err != nil {
		return KeyRotation{}, fmt.Errorf("seal signing key: %w", err)
	}

	grace := s.GracePeriod
	if grace <= 0 {
		grace = DefaultKeyGracePeriod
	}
	now := time.Now().UTC()
	next, created := domain.NewSigningKey(idx.NewAt(now).String(), kid, s.Algorithm, sealed, now)

	var out KeyRotation
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		valid, err := tx.SigningKeys().ListValidSigningKeys(ctx, now)
		if err != nil {
			return err
		}
		var current *domain.SigningKey
		if len(valid) > 0 && valid[0].IsActive {
			current = &valid[0]
		}

		rotated := domain.RotateSigningKeys(current, &next, grace, now)

		// The previous key has to give up is_active before the new key
		// takes it.
		if current != nil {
			if err := tx.SigningKeys().UpdateSigningKeyState(ctx, *current); err != nil {
				return err
			}
			prev := *current
			out.PreviousKey = &prev
		}
		if err := tx.SigningKeys().CreateSigningKey(ctx, next); err != nil {
			return err
		}
		out.NewKey = next
		return enqueue(ctx, tx, now, created, rotated)
	})
	if err != nil {
		return KeyRotation{}, err
	}

	if err := s.Ring.Activate(signer); err != nil {
		return KeyRotation{}, err
	}
	s.Logger.Info("signing key rotated", "kid", kid, "algorithm", s.Algorithm)
	return out, nil
}

// List returns every stored key, newest first.
func (s *KeyService) List(ctx context.Context) ([]domain.SigningKey, error) {
	return s.Store.SigningKeys().ListAllSigningKeys(ctx)
}

// Prune drops expired previous keys from the ring and the table.
func (s *KeyService) Prune(ctx context.Context, now time.Time) (int64, error) {
	all, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
	if err != nil {
		return 0, err
	}
	for _, k := range all {
		if !k.IsActive && !k.IsValid(now) {
			s.Ring.Remove(k.Kid)
		}
	}
	return s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
}

func openSigner(k domain.SigningKey) (*jwtx.Signer, error) {
	pemKey, err := cryptox.DecryptPrivateKey(k.PrivateKeyEncrypted)
	if err != nil {
		return nil, err
	}
	return jwtx.NewSigner(k.Algorithm, k.Kid, pemKey)
}
