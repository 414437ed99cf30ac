// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered researcher. ORCID is nil when the user has not
// provided an external researcher identifier.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	ORCID        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate lists the user columns to change; nil fields are left untouched.
// A non-nil ORCID pointing at "" clears the stored identifier.
type UserUpdate struct {
	Name         *string
	Email        *string
	ORCID        *string
	PasswordHash *string
}
