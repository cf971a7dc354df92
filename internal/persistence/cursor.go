// Package persistence contains helpers shared by training repository implementations.
package persistence

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"example.com/training/internal/domain"
)

const cursorSeparator = "|"

var errMalformedCursor = errors.New("malformed cursor")

// EncodeCursor serialises the cursor into a URL-safe token for the next_cursor field.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := c.StartedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means the first page.
func DecodeCursor(token string) (*domain.Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errMalformedCursor
	}
	startedAt, id, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok || id == "" {
		return nil, errMalformedCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, errMalformedCursor
	}
	return &domain.Cursor{StartedAt: ts, ID: id}, nil
}
