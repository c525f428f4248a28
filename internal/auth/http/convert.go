package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
)

var errBadEncoding = errors.New("not base64 or base64url")

// decodeBinary accepts standard or URL-safe base64, padded or not, since
// browsers and SDKs disagree on which to send.
func decodeBinary(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errBadEncoding
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func isFormRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	return authsdk.ClientInfo{
		ID:                     c.ID,
		ClientID:               c.ClientID,
		Name:                   c.Name,
		Description:            c.Description,
		Public:                 !c.IsConfidential(),
		IsActive:               c.IsActive,
		RequireConsent:         c.RequireConsent,
		RequirePKCE:            c.RequirePKCE,
		AccessTokenLifetime:    c.AccessTokenLifetime,
		RefreshTokenLifetime:   c.RefreshTokenLifetime,
		AllowedGrantTypes:      c.AllowedGrantTypes,
		AllowedScopes:          c.AllowedScopes,
		RedirectURIs:           c.RedirectURIs,
		PostLogoutRedirectURIs: c.PostLogoutRedirectURIs,
		Protected:              c.Protected,
		CreatedBy:              c.CreatedBy,
		LastUsedAt:             formatTimePtr(c.LastUsedAt),
		CreatedAt:              formatTime(c.CreatedAt),
	}
}

func keyInfo(k domain.SigningKey) authsdk.SigningKeyInfo {
	return authsdk.SigningKeyInfo{
		ID:         k.ID,
		Kid:        k.Kid,
		Algorithm:  k.Algorithm,
		IsActive:   k.IsActive,
		IsPrevious: k.IsPrevious,
		CreatedAt:  formatTime(k.CreatedAt),
		RetiredAt:  formatTimePtr(k.RetiredAt),
		ExpiresAt:  formatTimePtr(k.ExpiresAt),
	}
}

func consentInfo(c domain.Consent) authsdk.ConsentInfo {
	out := authsdk.ConsentInfo{ClientID: c.ClientID, Scopes: c.Scopes}
	if c.GrantedAt != nil {
		out.GrantedAt = formatTime(*c.GrantedAt)
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = formatTime(*c.ExpiresAt)
	}
	return out
}

func credentialInfo(c domain.WebAuthnCredential) authsdk.WebAuthnCredentialInfo {
	return authsdk.WebAuthnCredentialInfo{
		ID:           c.ID,
		CredentialID: c.CredentialID,
		Name:         c.Name,
		AAGUID:       c.AAGUID,
		Counter:      c.Counter,
		CreatedAt:    formatTime(c.CreatedAt),
		LastUsedAt:   formatTimePtr(c.LastUsedAt),
	}
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	tokenType := p.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    tokenType,
		ExpiresIn:    int(p.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(p.Scope),
	}
}
