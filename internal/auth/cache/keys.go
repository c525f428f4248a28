package cache

import "strings"

func WebAuthnRegisterKey(userID string) string { return "webauthn:register:" + userID }
func WebAuthnAuthKey(userID string) string     { return "webauthn:auth:" + userID }

// MFACodeKey is mfa:{kind}:{user}:{identifier} with kind lower-cased.
func MFACodeKey(kind, userID, identifier string) string {
	return "mfa:" + strings.ToLower(kind) + ":" + userID + ":" + identifier
}

// ReferenceTokenKey is keyed by the token fingerprint, never the raw token.
func ReferenceTokenKey(fingerprint string) string { return "ref_token:" + fingerprint }
