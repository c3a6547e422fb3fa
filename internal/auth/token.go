package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthorized is returned for any credential that cannot be accepted.
// Callers must not reveal which check failed.
var ErrUnauthorized = errors.New("unauthorized")

// TokenType is the OAuth2 token type reported to clients.
const TokenType = "bearer"

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// TokenConfig configures token signing and validation.
type TokenConfig struct {
	Secret    string
	Algorithm string
	Issuer    string
	TTL       time.Duration
}

// Claims are the JWT claims carried by an access token. Subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	ExpiresAt   time.Time
}

// TokenService issues and validates HMAC-signed access tokens.
type TokenService struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	now    func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	method, ok := signingMethods[cfg.Algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", cfg.Algorithm)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenService{cfg: cfg, method: method, now: time.Now}, nil
}

// Issue signs a token for userID.
func (s *TokenService) Issue(userID string) (*Token, error) {
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresIn:   s.cfg.TTL,
		ExpiresAt:   expires,
	}, nil
}

// Validate checks signature, algorithm, expiry and issuer. Every failure
// is reported as ErrUnauthorized with the cause attached for logging.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	return claims, nil
}
