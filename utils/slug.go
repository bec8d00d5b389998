package utils

import "strings"

// Slugify normalizes a tag name into its canonical slug: lowercase
// with whitespace runs collapsed to single hyphens. "Internet Mystery"
// and "internet mystery" both map to "internet-mystery", which is what
// deduplicates tags that differ only in casing or spacing.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}
