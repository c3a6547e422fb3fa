// Package model defines domain entities for the application.
package model

import "time"

// User is an account that owns predictions.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FullName       string     `json:"full_name"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Identity returns the authenticated view of the user.
func (u *User) Identity() *Identity {
	return &Identity{
		UserID:      u.ID,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
}
