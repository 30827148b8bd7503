package domain

import (
	"strconv"
	"strings"
	"time"
)

// Separator for fingerprint parts. Normalized parts are lowercased and
// trimmed, so a pipe never survives normalization in practice.
const fingerprintSep = "|"

// BuildFingerprint derives the stable key that identifies a logical call for
// deduplication and caching. Two calls that differ only in casing or
// surrounding whitespace of their parts map to the same key.
//
// The freshness window is bucketed to whole seconds: floor(freshness / 1s).
// Windows below one second therefore collapse into bucket 0. Callers rely on
// sub-second windows sharing a bucket, so this stays coarse on purpose.
//
// Malformed inputs never fail; they normalize to empty parts.
func BuildFingerprint(operation string, targets []string, freshness time.Duration, argsHash string) string {
	parts := make([]string, 0, len(targets)+3)
	parts = append(parts, normalizePart(operation))
	for _, t := range targets {
		parts = append(parts, normalizePart(t))
	}

	var bucket int64
	if freshness > 0 {
		bucket = int64(freshness / time.Second)
	}
	parts = append(parts, strconv.FormatInt(bucket, 10), normalizePart(argsHash))

	return strings.Join(parts, fingerprintSep)
}

func normalizePart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
