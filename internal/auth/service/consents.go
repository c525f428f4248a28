package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

var ErrConsentNotFound = errors.New("consent not found")

// ConsentService lets a signed in user manage what clients may access.
type ConsentService struct {
	Store store.Store
}

// Grant replaces the user's consent for clientID with scopes. Every scope
// must be allowed for the client.
func (s *ConsentService) Grant(ctx context.Context, userID, clientID string, scopes []string) (domain.Consent, error) {
	scopes = dedupe(scopes)
	if len(scopes) == 0 {
		return domain.Consent{}, invalid("scopes", "at least one scope is required")
	}
	now := time.Now().UTC()

	var out domain.Consent
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := tx.Clients().GetClientByClientID(ctx, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		if !client.AllScopesAllowed(scopes) {
			return ErrInvalidScope
		}

		c, err := tx.Consents().GetConsent(ctx, userID, clientID)
		if errors.Is(err, store.ErrNotFound) {
			c = domain.NewConsent(idx.NewAt(now).String(), userID, clientID, now)
		} else if err != nil {
			return err
		}
		c.Grant(scopes, nil, now)
		out = c
		return tx.Consents().UpsertConsent(ctx, c)
	})
	return out, err
}

func (s *ConsentService) Revoke(ctx context.Context, userID, clientID string) error {
	now := time.Now().UTC()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Consents().GetConsent(ctx, userID, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrConsentNotFound
			}
			return err
		}
		c.Revoke(now)
		return tx.Consents().UpsertConsent(ctx, c)
	})
}

func (s *ConsentService) List(ctx context.Context, userID string) ([]domain.Consent, error) {
	return s.Store.Consents().ListUserConsents(ctx, userID)
}
