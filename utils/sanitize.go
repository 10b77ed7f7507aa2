package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks, keeping safe formatting.
// Only rich bodies (post content, comments) go through it; plain fields are
// stored as typed and escaped by the templates.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
