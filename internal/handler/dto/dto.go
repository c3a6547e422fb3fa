// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/loanwise/loanwise/internal/features"

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error  string                `json:"error"`
	Code   string                `json:"code"`
	Fields []features.FieldError `json:"fields,omitempty"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
