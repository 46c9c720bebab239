package rediscache

import (
	"strconv"

	"github.com/JakeFAU/linkstash/internal/hash/sha256"
)

const (
	// KeyPrefixItem is the prefix for items cached by id.
	KeyPrefixItem = "linkstash:item:"
	// KeyPrefixURL is the prefix for items cached by canonical URL.
	KeyPrefixURL = "linkstash:url:"
)

// ItemKey returns the Redis key for an item id.
func ItemKey(id int64) string {
	return KeyPrefixItem + strconv.FormatInt(id, 10)
}

// URLKey returns the Redis key for a canonical URL. The URL is hashed so
// key length stays fixed.
func URLKey(canonicalURL string) string {
	return KeyPrefixURL + sha256.Digest(canonicalURL)
}
