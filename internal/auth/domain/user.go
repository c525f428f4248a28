package domain

import "time"

type User struct {
	ID            string
	Username      string
	Email         string
	PhoneNumber   string
	PreferredName string
	PasswordHash  string // argon2id PHC
	RoleID        string
	IsActive      bool
	MFAEnabled    *time.Time // when TOTP was enabled
	MFASecret     *string    // base32 TOTP secret
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) HasTOTP() bool {
	return u.MFAEnabled != nil && u.MFASecret != nil && *u.MFASecret != ""
}
