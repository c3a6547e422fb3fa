package dto

import (
	"time"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/model"
)

// RegisterRequest represents the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// TokenRequest carries login credentials. The token endpoint accepts the
// OAuth2 password form fields or the same names as JSON.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is an OAuth2 bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// UpdateUserRequest represents the body of PUT /api/v1/users/me.
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
}

// UserResponse represents a user account. The password hash is never
// serialized.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ToUserResponse converts a User model to its DTO.
func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ToTokenResponse converts an issued token to its DTO.
func ToTokenResponse(t *auth.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   int64(t.ExpiresIn.Seconds()),
	}
}
