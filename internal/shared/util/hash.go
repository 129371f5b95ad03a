package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashLength is the number of hex characters kept in URL content hashes.
const HashLength = 8

// ContentHash returns the full 64-bit xxhash of content as 16 hex characters.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// ShortHash returns the truncated hash embedded in served URLs (?h=...).
func ShortHash(content []byte) string {
	return ContentHash(content)[:HashLength]
}

// ShortHashString is ShortHash for string content.
func ShortHashString(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))[:HashLength]
}
