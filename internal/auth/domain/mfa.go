package domain

import "time"

const (
	MFASessionTTL  = 5 * time.Minute
	MaxMFAAttempts = 5
	MFAMethodTOTP  = "totp"
	MFAMethodSMS   = "sms"
	MFAMethodEmail = "email"
)

// MFASession is a pending second factor challenge created after a correct
// password for a user with MFA enabled. Its ID is the mfa_token.
type MFASession struct {
	ID                  string
	UserID              string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	AMR                 []string
	SessionID           string
	Attempts            int
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

func (s *MFASession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *MFASession) AttemptsExhausted() bool {
	return s.Attempts >= MaxMFAAttempts
}

// MFAEnrollment is returned once when a user starts TOTP enrolment.
type MFAEnrollment struct {
	Secret  string // base32
	URL     string // otpauth://
	Issuer  string
	Account string
}
