package domain

import "time"

// SigningKey is a JWT signing key stored encrypted at rest. At most one key
// is active; previous keys keep verifying tokens until they expire.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string // RS256, ES256 or EdDSA
	PrivateKeyEncrypted []byte // AES-256-GCM sealed PEM
	IsActive            bool
	IsPrevious          bool
	ExpiresAt           *time.Time
	CreatedAt           time.Time
	RetiredAt           *time.Time
}

func NewSigningKey(id, kid, alg string, encrypted []byte, now time.Time) (SigningKey, Event) {
	k := SigningKey{
		ID:                  id,
		Kid:                 kid,
		Algorithm:           alg,
		PrivateKeyEncrypted: encrypted,
		CreatedAt:           now,
	}
	return k, SigningKeyCreated{Kid: kid, Algorithm: alg, OccurredAt: now}
}

func (k *SigningKey) Activate() {
	k.IsActive = true
	k.IsPrevious = false
	k.RetiredAt = nil
}

// MarkAsPrevious stops signing with the key but keeps it verifiable for
// gracePeriod.
func (k *SigningKey) MarkAsPrevious(gracePeriod time.Duration, now time.Time) {
	exp := now.Add(gracePeriod)
	k.IsActive = false
	k.IsPrevious = true
	k.RetiredAt = &now
	k.ExpiresAt = &exp
}

// Deactivate removes the key from both signing and verification.
func (k *SigningKey) Deactivate(now time.Time) {
	k.IsActive = false
	k.IsPrevious = false
	if k.RetiredAt == nil {
		k.RetiredAt = &now
	}
}

// IsValid is true for active or previous keys that have not expired.
func (k *SigningKey) IsValid(now time.Time) bool {
	if !k.IsActive && !k.IsPrevious {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// RotateSigningKeys activates next and demotes current (which may be nil on
// first start). It returns the SigningKeyRotated event.
func RotateSigningKeys(current, next *SigningKey, gracePeriod time.Duration, now time.Time) Event {
	ev := SigningKeyRotated{NewKid: next.Kid, OccurredAt: now}
	if current != nil {
		current.MarkAsPrevious(gracePeriod, now)
		ev.PreviousKid = current.Kid
	}
	next.Activate()
	return ev
}
