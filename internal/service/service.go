// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	ErrPersistence   = errors.New("persistence failure")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrWeakPassword  = errors.New("password too short")
	ErrInvalidName   = errors.New("full name too long")
	ErrUserNotFound  = errors.New("user not found")
)

// Pagination limits for prediction history.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)
