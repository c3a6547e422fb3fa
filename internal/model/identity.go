package model

// Identity holds the authenticated caller.
// This is injected into the request context by auth middleware.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
	TokenID     string `json:"-"`
}
