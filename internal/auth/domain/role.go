package domain

import "time"

// Role groups users. Its scopes are issued as the permissions claim.
type Role struct {
	ID        string
	Name      string
	Scopes    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
