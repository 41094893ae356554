package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future encoding change without collisions.
const (
	DomainCacheKey = "focusql/cache-key/v1"
	DomainScript   = "focusql/script/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey computes the content-addressed key of a normalized request.
// Two requests that differ only in map ordering or Unicode normalization
// produce the same key.
func CacheKey(request Object) (string, error) {
	canonical, err := MarshalCanonical(request)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return hashWithDomain(DomainCacheKey, canonical), nil
}

// ScriptDigest identifies generated script text in the execution journal.
func ScriptDigest(source string) string {
	return hashWithDomain(DomainScript, []byte(source))
}
