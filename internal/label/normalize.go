// Package label turns free-text financial statement labels into canonical
// matching keys.
package label

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lower-cases raw, collapses every run of characters outside
// [a-z0-9] into a single underscore and trims underscores from both ends.
//
// It is total and pure: any input, including the empty string, yields a
// result, and equal inputs always yield equal outputs. A label with no
// alphanumeric characters normalizes to "".
func Normalize(raw string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(raw), "_"), "_")
}

// NormalizeAll normalizes each label, keeping input order.
func NormalizeAll(raws []string) []string {
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw)
	}
	return out
}
