package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// JWKSHandler exposes the public keys of every key still trusted for
// verification, the active one first.
//
//	@Summary		JSON Web Key Set
//	@Description	Public keys for verifying access tokens. Previous keys stay listed for their grace period.
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}

// DiscoveryHandler serves the OpenID provider metadata for issuer.
//
//	@Summary		OpenID provider configuration
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	authsdk.OpenIDConfiguration
//	@Router			/.well-known/openid-configuration [get]
func DiscoveryHandler(issuer string, keys *jwtx.KeySet, grantTypes []string) http.HandlerFunc {
	base := strings.TrimSuffix(issuer, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		var algs []string
		for _, k := range keys.PublicJWKS().Keys {
			if k.Alg != "" && !slices.Contains(algs, k.Alg) {
				algs = append(algs, k.Alg)
			}
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.OpenIDConfiguration{
			Issuer:                            issuer,
			AuthorizationEndpoint:             base + "/v1/oauth2/authorize",
			TokenEndpoint:                     base + "/v1/oauth2/token",
			IntrospectionEndpoint:             base + "/v1/oauth2/introspect",
			RevocationEndpoint:                base + "/v1/oauth2/revoke",
			UserInfoEndpoint:                  base + "/v1/userinfo",
			JWKSURI:                           base + "/.well-known/jwks.json",
			ResponseTypesSupported:            []string{"code"},
			GrantTypesSupported:               grantTypes,
			CodeChallengeMethodsSupported:     []string{"S256", "plain"},
			TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "client_secret_basic", "none"},
			SubjectTypesSupported:             []string{"public"},
			IDTokenSigningAlgValuesSupported:  algs,
		})
	}
}
