package repository

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	in := &PaginationCursor{
		ID:        "01HZX3J1ZQ6K8W0V5N2M4P7R9T",
		CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123456000, time.UTC),
	}

	out, err := decodeCursor(encodeCursor(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!"},
		{"not json", encodeRaw("plain text")},
		{"missing id", encodeRaw(`{"created_at":"2026-03-01T12:30:00Z"}`)},
		{"missing timestamp", encodeRaw(`{"id":"abc"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodeCursor(tt.cursor)
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}

func encodeRaw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
