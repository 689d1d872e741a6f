package cache

import (
	"encoding/hex"
	"strings"
)

// Key builds a consistent backend key by joining a prefix and parts with colons.
// This ensures cache keys follow a consistent naming convention across backends.
//
// Example:
//
//	key := cache.Key("tsq", "a1b2c3")        // "tsq:a1b2c3"
//	key := cache.Key("", "a1b2c3")           // "a1b2c3"
//
// Empty parts are filtered out to prevent double colons.
func Key(prefix string, parts ...string) string {
	// Pre-allocate with capacity for all parts
	filtered := make([]string, 0, len(parts)+1)

	if prefix != "" {
		filtered = append(filtered, prefix)
	}

	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}

	return strings.Join(filtered, ":")
}

// EncodeKey renders an opaque executor key as the hex string form used by
// string-keyed backends.
func EncodeKey(prefix string, key []byte) string {
	return Key(prefix, hex.EncodeToString(key))
}
