package search

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// mergeKeyPrefix namespaces merge keys away from the stable item ID space,
// so the two can never collide even on an MD5 collision.
const mergeKeyPrefix = "mrg:"

// ComputeMergeKey derives the display-time grouping key from normalized
// title, snippet and location. It is deliberately sensitive to the raw
// location string: "Santa Cruz, CA" and "Santa Cruz Beach, CA" produce
// different keys and will not merge. Changing that changes user-visible
// grouping across every result set.
func ComputeMergeKey(title, snippet, location string) string {
	normalized := strings.Join([]string{
		strings.ToLower(normalizeSpace(title)),
		strings.ToLower(normalizeSpace(snippet)),
		strings.ToLower(normalizeSpace(location)),
	}, "\n")
	sum := md5.Sum([]byte(normalized))
	return mergeKeyPrefix + hex.EncodeToString(sum[:])
}

// ComputeURLSig signs url+mergeKey so downstream click handlers can verify a
// result URL wasn't tampered with between render and click.
func ComputeURLSig(secret []byte, url, mergeKey string) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write([]byte(url))
	mac.Write([]byte(mergeKey))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
