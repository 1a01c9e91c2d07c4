// Package pagination implements opaque keyset cursors for listing
// endpoints. A cursor pins the (created_at, id) position of the last
// item served so pages stay stable while documents are inserted.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a client-supplied cursor cannot be
// decoded. Handlers map it to a 400.
var ErrInvalidCursor = errors.New("invalid cursor format")

const cursorSeparator = "|"

// Cursor is the decoded keyset position.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// EncodeCursor packs an item position into an opaque base64 token.
// An empty ID yields an empty token.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + cursorSeparator + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a client-supplied token. An empty token decodes
// to a nil cursor, meaning "start from the beginning".
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	lastID, stamp, found := strings.Cut(string(decoded), cursorSeparator)
	if !found {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: lastID, Timestamp: timestamp}, nil
}

// CreateNextCursor creates a cursor pointing past the last item of a full
// page. Returns empty string when the page was not full.
func CreateNextCursor[T any](items []T, limit int, getID func(T) string, getTimestamp func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	last := items[len(items)-1]
	return EncodeCursor(getID(last), getTimestamp(last))
}
