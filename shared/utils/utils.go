package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashContent returns the hex-encoded sha256 of content.
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// ShortID truncates an ID to n characters for use in human-facing names.
func ShortID(id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) <= n {
		return id
	}
	return id[:n]
}
