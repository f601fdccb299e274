package models

import "strings"

// SanitizeKeySegment escapes ':' in caller controlled key segments so an
// identifier like "a:b" cannot address a neighbouring bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewKey builds the bucket key for a caller of the batch API.
func NewKey(kind KeyKind, id string) string {
	return "ratelimit:batch:" + string(kind) + ":" + SanitizeKeySegment(id)
}
