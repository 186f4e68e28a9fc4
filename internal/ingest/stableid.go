package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/david/volunteer-connect/internal/models"
)

// ComputeStableID derives the content-addressed identifier for one unwound
// instance. The field order is fixed; changing it changes every ID in the
// corpus, which breaks cross-run dedup and cache keys.
//
// The address component has all digits stripped on purpose: "123 Main St" and
// "456 Main St" in the same city hash identically, so near-duplicate listings
// from different providers can still collide. That fuzziness is intentional.
//
// MD5 is fine here. The ID is a dedup fingerprint, not a security boundary.
func ComputeStableID(inst *models.Instance) string {
	parts := []string{
		inst.Org.Identity(),
		stripDigits(inst.Location.FullAddress()),
		inst.Schedule.Signature(),
		cleanText(inst.Title),
		cleanAbstract(inst),
		inst.DetailURL,
		inst.Description,
	}
	sum := md5.Sum([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the coarser duplicate-marker key. Unlike the stable ID it
// excludes org identity, detail URL and raw description, so the same event
// posted through two different feeds still collides within a processing run.
func Fingerprint(inst *models.Instance) string {
	parts := []string{
		strings.ToLower(cleanText(inst.Title)),
		strings.ToLower(cleanAbstract(inst)),
		inst.Location.FullAddress(),
		inst.Schedule.Signature(),
	}
	sum := md5.Sum([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// cleanAbstract returns the instance abstract, deriving one from the
// description when the feed didn't provide it: HTML-stripped,
// whitespace-normalized, truncated.
func cleanAbstract(inst *models.Instance) string {
	if inst.Abstract != "" {
		return cleanText(inst.Abstract)
	}
	return TruncateText(HTMLToText(inst.Description), 280)
}
