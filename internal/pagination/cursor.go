// Package pagination implements opaque keyset cursors for listings ordered
// by (created_at, id) descending.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the position after the last item of a page.
type Cursor struct {
	LastID    string
	CreatedAt time.Time
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode serializes the cursor to an opaque token.
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw := c.LastID + "|" + c.CreatedAt.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque token. An empty token yields a nil cursor, meaning
// "first page".
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, ts, found := strings.Cut(string(decoded), "|")
	if !found || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, CreatedAt: createdAt}, nil
}

// NextToken derives the next-page token from a full page of items. Returns
// an empty token when the page is short, meaning there are no further pages.
func NextToken[T any](items []T, limit int, id func(T) string, createdAt func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	last := items[len(items)-1]
	return Cursor{LastID: id(last), CreatedAt: createdAt(last)}.Encode()
}
