package authsdk

import (
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// ErrorResponse is the wire form of an OAuth2Error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// OAuth2
// ============================================================================

// TokenResponse is the RFC 6749 section 5.1 body. RefreshToken is omitted
// for client_credentials.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// IntrospectionResponse is the RFC 7662 body. Inactive tokens carry only
// Active=false.
type IntrospectionResponse struct {
	Active      bool     `json:"active"`
	Scope       string   `json:"scope,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	Username    string   `json:"username,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	Exp         int64    `json:"exp,omitempty"`
	Iat         int64    `json:"iat,omitempty"`
	Nbf         int64    `json:"nbf,omitempty"`
	Sub         string   `json:"sub,omitempty"`
	Aud         []string `json:"aud,omitempty"`
	Iss         string   `json:"iss,omitempty"`
	Jti         string   `json:"jti,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	AMR         []string `json:"amr,omitempty"`
}

// OpenIDConfiguration is the discovery document served at
// /.well-known/openid-configuration.
type OpenIDConfiguration struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
}

// JWKSResponse is the public key set at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Bootstrap
// ============================================================================

// BootstrapRequest seeds an empty installation with roles, an admin user
// and a protected confidential client. Requires the X-Bootstrap-Token header.
type BootstrapRequest struct {
	AdminUsername      string           `json:"admin_username"`
	AdminEmail         string           `json:"admin_email,omitempty"`
	AdminPreferredName string           `json:"admin_preferred_name,omitempty"`
	AdminPassword      string           `json:"admin_password"`
	ClientID           string           `json:"client_id"`
	ClientName         string           `json:"client_name"`
	ClientScopes       []string         `json:"client_scopes"`
	RedirectURIs       []string         `json:"redirect_uris,omitempty"`
	Roles              []RoleDefinition `json:"roles"`
}

type RoleDefinition struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// BootstrapResponse returns the client secret exactly once.
type BootstrapResponse struct {
	AdminUserID  string `json:"admin_user_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ============================================================================
// Users and roles
// ============================================================================

// UserInfoResponse is served from GET /v1/userinfo.
type UserInfoResponse struct {
	Sub           string   `json:"sub"`
	Username      string   `json:"username"`
	PreferredName string   `json:"preferred_name,omitempty"`
	Email         string   `json:"email,omitempty"`
	PhoneNumber   string   `json:"phone_number,omitempty"`
	Role          string   `json:"role"`
	MFAEnabled    bool     `json:"mfa_enabled"`
	AMR           []string `json:"amr,omitempty"`
}

type CreateUserRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PreferredName string `json:"preferred_name,omitempty"`
	Role          string `json:"role"`
}

type UserResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PreferredName string `json:"preferred_name,omitempty"`
	Role          string `json:"role"`
	CreatedAt     string `json:"created_at"`
}

type RoleInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type ListRolesResponse struct {
	Roles []RoleInfo `json:"roles"`
}

// ============================================================================
// Clients
// ============================================================================

// CreateClientRequest registers a client. Nil pointers and zero lifetimes
// take the server defaults. A confidential client without ClientSecret gets
// a generated one.
type CreateClientRequest struct {
	ClientID               string   `json:"client_id"`
	ClientSecret           string   `json:"client_secret,omitempty"`
	Public                 bool     `json:"public"`
	Name                   string   `json:"name"`
	Description            string   `json:"description,omitempty"`
	RequireConsent         *bool    `json:"require_consent,omitempty"`
	RequirePKCE            *bool    `json:"require_pkce,omitempty"`
	AccessTokenLifetime    int      `json:"access_token_lifetime,omitempty"`  // seconds
	RefreshTokenLifetime   int      `json:"refresh_token_lifetime,omitempty"` // days
	AllowedGrantTypes      []string `json:"allowed_grant_types,omitempty"`
	AllowedScopes          []string `json:"allowed_scopes,omitempty"`
	RedirectURIs           []string `json:"redirect_uris,omitempty"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
}

type ClientInfo struct {
	ID                     string   `json:"id"`
	ClientID               string   `json:"client_id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description,omitempty"`
	Public                 bool     `json:"public"`
	IsActive               bool     `json:"is_active"`
	RequireConsent         bool     `json:"require_consent"`
	RequirePKCE            bool     `json:"require_pkce"`
	AccessTokenLifetime    int      `json:"access_token_lifetime"`
	RefreshTokenLifetime   int      `json:"refresh_token_lifetime"`
	AllowedGrantTypes      []string `json:"allowed_grant_types"`
	AllowedScopes          []string `json:"allowed_scopes"`
	RedirectURIs           []string `json:"redirect_uris"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
	Protected              bool     `json:"protected"`
	CreatedBy              string   `json:"created_by,omitempty"`
	LastUsedAt             *string  `json:"last_used_at,omitempty"`
	CreatedAt              string   `json:"created_at"`
}

// CreateClientResponse carries the plaintext secret once; it is never
// retrievable again.
type CreateClientResponse struct {
	Client       ClientInfo `json:"client"`
	ClientSecret string     `json:"client_secret,omitempty"`
}

type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// RotateSecretRequest may supply the new secret; otherwise one is generated.
type RotateSecretRequest struct {
	ClientSecret string `json:"client_secret,omitempty"`
}

type RotateSecretResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ============================================================================
// Consents
// ============================================================================

type ConsentRequest struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

type ConsentInfo struct {
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes"`
	GrantedAt string   `json:"granted_at,omitempty"`
	ExpiresAt string   `json:"expires_at,omitempty"`
}

type ListConsentsResponse struct {
	Consents []ConsentInfo `json:"consents"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is only filled in by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Signer   string `json:"signer"`
}

// ============================================================================
// MFA
// ============================================================================

type TOTPEnrollResponse struct {
	Secret  string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	URL     string `json:"otpauth_url" example:"otpauth://totp/identity:alice?secret=JBSWY3DPEHPK3PXP&issuer=identity"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// TOTPCodeRequest confirms enrolment or authorises removal.
type TOTPCodeRequest struct {
	Code string `json:"code"`
}

// SendCodeRequest delivers a one-time code over sms or email. An empty
// Identifier uses the phone number or email address on file.
type SendCodeRequest struct {
	ProviderType string `json:"provider_type"`
	Identifier   string `json:"identifier,omitempty"`
}

type SendCodeResponse struct {
	ProviderType string `json:"provider_type"`
	Sent         bool   `json:"sent"`
}

type VerifyCodeRequest struct {
	ProviderType string `json:"provider_type"`
	Identifier   string `json:"identifier,omitempty"`
	Code         string `json:"code"`
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

// ============================================================================
// WebAuthn
// ============================================================================

type WebAuthnRegisterChallengeRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// WebAuthnRegisterCompleteRequest carries the authenticator output. Binary
// fields accept base64 or base64url, padded or not.
type WebAuthnRegisterCompleteRequest struct {
	CredentialID      string `json:"credential_id"`
	PublicKey         string `json:"public_key,omitempty"` // SPKI DER; must match the attested key when sent
	Counter           uint32 `json:"counter"`
	AttestationObject string `json:"attestation_object"`
	ClientDataJSON    string `json:"client_data_json"`
	Name              string `json:"name,omitempty"`
}

type WebAuthnAuthenticateCompleteRequest struct {
	CredentialID      string `json:"credential_id"`
	AuthenticatorData string `json:"authenticator_data"`
	ClientDataJSON    string `json:"client_data_json"`
	Signature         string `json:"signature"`
	Counter           uint32 `json:"counter"`
}

type WebAuthnCredentialInfo struct {
	ID           string  `json:"id"`
	CredentialID string  `json:"credential_id"`
	Name         string  `json:"name,omitempty"`
	AAGUID       string  `json:"aaguid,omitempty"`
	Counter      uint32  `json:"counter"`
	CreatedAt    string  `json:"created_at"`
	LastUsedAt   *string `json:"last_used_at,omitempty"`
}

// ============================================================================
// Signing keys
// ============================================================================

type SigningKeyInfo struct {
	ID         string  `json:"id"`
	Kid        string  `json:"kid"`
	Algorithm  string  `json:"algorithm"`
	IsActive   bool    `json:"is_active"`
	IsPrevious bool    `json:"is_previous"`
	CreatedAt  string  `json:"created_at"`
	RetiredAt  *string `json:"retired_at,omitempty"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
}

type RotateKeyResponse struct {
	NewKey      SigningKeyInfo  `json:"new_key"`
	PreviousKey *SigningKeyInfo `json:"previous_key,omitempty"`
}

type ListKeysResponse struct {
	Keys []SigningKeyInfo `json:"keys"`
}

// WebAuthnRegistrationOptions mirrors PublicKeyCredentialCreationOptions.
// Challenge is base64url and single use.
type WebAuthnRegistrationOptions struct {
	Challenge string `json:"challenge"`
	RP        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"rp"`
	User struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	PubKeyCredParams []struct {
		Type string `json:"type"`
		Alg  int    `json:"alg"`
	} `json:"pubKeyCredParams"`
	Timeout     int    `json:"timeout"`
	Attestation string `json:"attestation"`
}

// WebAuthnAuthenticationOptions mirrors PublicKeyCredentialRequestOptions.
type WebAuthnAuthenticationOptions struct {
	Challenge        string `json:"challenge"`
	RPID             string `json:"rpId"`
	AllowCredentials []struct {
		Type       string   `json:"type"`
		ID         string   `json:"id"`
		Transports []string `json:"transports"`
	} `json:"allowCredentials"`
	UserVerification string `json:"userVerification"`
	Timeout          int    `json:"timeout"`
}
