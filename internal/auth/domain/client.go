package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Grant types understood by the dispatcher.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
	GrantDeviceCode        = "device_code"
	GrantDeviceCodeURN     = "urn:ietf:params:oauth:grant-type:device_code"
)

// Client defaults applied by NewClient.
const (
	DefaultAccessTokenLifetime  = 3600 // seconds
	DefaultRefreshTokenLifetime = 30   // days
)

var (
	DefaultGrantTypes = []string{GrantAuthorizationCode, GrantRefreshToken}
	DefaultScopes     = []string{"openid", "profile", "email"}
)

type Client struct {
	ID                     string
	ClientID               string
	SecretHash             string // argon2id PHC string; empty for public clients
	Name                   string
	Description            string
	IsActive               bool
	RequireConsent         bool
	RequirePKCE            bool
	AccessTokenLifetime    int // seconds
	RefreshTokenLifetime   int // days
	AllowedGrantTypes      []string
	AllowedScopes          []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Protected              bool // cannot be deleted (e.g. bootstrap client)
	CreatedBy              string
	LastUsedAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewClientParams carries the caller supplied fields. Nil pointers and empty
// lists take the defaults.
type NewClientParams struct {
	ID                     string
	ClientID               string
	SecretHash             string
	Name                   string
	Description            string
	RequireConsent         *bool
	RequirePKCE            *bool
	AccessTokenLifetime    int
	RefreshTokenLifetime   int
	AllowedGrantTypes      []string
	AllowedScopes          []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Protected              bool
	CreatedBy              string
}

// NewClient builds an active client and the ClientCreated event.
func NewClient(p NewClientParams, now time.Time) (Client, Event, error) {
	if p.ID == "" || p.ClientID == "" || p.Name == "" {
		return Client{}, nil, fmt.Errorf("%w: id, client_id and name are required", ErrInvalidClient)
	}

	c := Client{
		ID:                     p.ID,
		ClientID:               p.ClientID,
		SecretHash:             p.SecretHash,
		Name:                   p.Name,
		Description:            p.Description,
		IsActive:               true,
		RequireConsent:         true,
		AccessTokenLifetime:    DefaultAccessTokenLifetime,
		RefreshTokenLifetime:   DefaultRefreshTokenLifetime,
		AllowedGrantTypes:      slices.Clone(DefaultGrantTypes),
		AllowedScopes:          slices.Clone(DefaultScopes),
		RedirectURIs:           slices.Clone(p.RedirectURIs),
		PostLogoutRedirectURIs: slices.Clone(p.PostLogoutRedirectURIs),
		Protected:              p.Protected,
		CreatedBy:              p.CreatedBy,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if p.RequireConsent != nil {
		c.RequireConsent = *p.RequireConsent
	}
	if p.RequirePKCE != nil {
		c.RequirePKCE = *p.RequirePKCE
	}
	if p.AccessTokenLifetime > 0 {
		c.AccessTokenLifetime = p.AccessTokenLifetime
	}
	if p.RefreshTokenLifetime > 0 {
		c.RefreshTokenLifetime = p.RefreshTokenLifetime
	}
	if len(p.AllowedGrantTypes) > 0 {
		c.AllowedGrantTypes = slices.Clone(p.AllowedGrantTypes)
	}
	if len(p.AllowedScopes) > 0 {
		c.AllowedScopes = slices.Clone(p.AllowedScopes)
	}

	return c, ClientCreated{ClientID: c.ClientID, Name: c.Name, CreatedBy: c.CreatedBy, OccurredAt: now}, nil
}

func (c *Client) IsConfidential() bool { return c.SecretHash != "" }

func (c *Client) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenLifetime) * time.Second
}

func (c *Client) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenLifetime) * 24 * time.Hour
}

// RotateSecret swaps the secret hash. Lifetimes and every other setting are
// left untouched.
func (c *Client) RotateSecret(secretHash string, now time.Time) Event {
	c.SecretHash = secretHash
	c.UpdatedAt = now
	return ClientSecretRotated{ClientID: c.ClientID, OccurredAt: now}
}

func (c *Client) RecordUsage(now time.Time) {
	c.LastUsedAt = &now
}

func (c *Client) Activate(now time.Time) {
	c.IsActive = true
	c.UpdatedAt = now
}

func (c *Client) Deactivate(now time.Time) {
	c.IsActive = false
	c.UpdatedAt = now
}

func (c *Client) IsGrantTypeAllowed(grantType string) bool {
	return slices.ContainsFunc(c.AllowedGrantTypes, func(g string) bool {
		return strings.EqualFold(g, grantType)
	})
}

func (c *Client) IsScopeAllowed(scope string) bool {
	return slices.Contains(c.AllowedScopes, scope)
}

// AllScopesAllowed reports whether every scope in scopes is allowed.
func (c *Client) AllScopesAllowed(scopes []string) bool {
	for _, s := range scopes {
		if !c.IsScopeAllowed(s) {
			return false
		}
	}
	return true
}

func (c *Client) IsRedirectURIAllowed(uri string) bool {
	return slices.ContainsFunc(c.RedirectURIs, func(pattern string) bool {
		return MatchRedirectURI(pattern, uri)
	})
}

// MatchRedirectURI compares case-insensitively. A pattern ending in "*"
// matches any URI that starts with the rest of the pattern.
func MatchRedirectURI(pattern, uri string) bool {
	if pattern == "" || uri == "" {
		return false
	}
	p := strings.ToLower(pattern)
	u := strings.ToLower(uri)
	if prefix, ok := strings.CutSuffix(p, "*"); ok {
		return strings.HasPrefix(u, prefix)
	}
	return p == u
}
