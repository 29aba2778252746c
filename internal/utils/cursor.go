package utils

import (
	"encoding/base64"
	"encoding/json"
)

type pageCursor struct {
	Offset int `json:"offset"`
}

// EncodeCursor packs a page offset into an opaque URL-safe token.
func EncodeCursor(offset int) string {
	payload, err := json.Marshal(pageCursor{Offset: offset})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(payload)
}

// DecodeCursor unpacks a cursor token back into a page offset. Anything that
// does not decode cleanly falls back to the first page rather than erroring,
// so stale bookmarks and hand-edited tokens degrade gracefully.
func DecodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(cursor)
		if err != nil {
			return 0
		}
	}

	var pc pageCursor
	if err := json.Unmarshal(raw, &pc); err != nil {
		return 0
	}
	if pc.Offset < 0 {
		return 0
	}
	return pc.Offset
}

// NextCursor returns the cursor for the page after the one just served, or
// nil when the page came back short and no further rows can exist.
func NextCursor(offset, limit, pageLen int) *string {
	if pageLen < limit {
		return nil
	}
	next := EncodeCursor(offset + limit)
	return &next
}
