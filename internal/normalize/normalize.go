// Package normalize produces a stable form of error text for matching.
//
// Raw error messages carry volatile substrings (timestamps, line numbers,
// heap addresses, generated IDs) that defeat both exact and fuzzy matching.
// Clean strips or placeholder-replaces those so that two occurrences of the
// same underlying error normalize to the same string.
package normalize

import (
	"regexp"
	"strings"
)

var (
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.\d]*Z?`)
	timeOfDayRe    = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[.\d]*`)

	// Locators are replaced with placeholders, not deleted, so that the
	// structural shape of the message survives normalization.
	colonLocatorRe = regexp.MustCompile(`:\d+:\d+`)
	lineRe         = regexp.MustCompile(`(?i)line \d+`)
	columnRe       = regexp.MustCompile(`(?i)column \d+`)

	unixPathRe    = regexp.MustCompile(`(/[\w\-./]+/)([\w\-]+\.\w+)`)
	windowsPathRe = regexp.MustCompile(`(\\[\w\-\\]+\\)([\w\-]+\.\w+)`)

	fieldIDRe   = regexp.MustCompile(`fld_\d+_\d+`)
	field2IDRe  = regexp.MustCompile(`field_\d+_\d+`)
	revIDRe     = regexp.MustCompile(`rev_\d+_\d+`)
	longNumRe   = regexp.MustCompile(`_\d{10,}`)
	hexAddrRe   = regexp.MustCompile(`0x[a-fA-F0-9]+\b`)
	parenCoordRe = regexp.MustCompile(`\((\d+\.?\d*),\s*(\d+\.?\d*)\)`)
	brackCoordRe = regexp.MustCompile(`\[(\d+\.?\d*),\s*(\d+\.?\d*)\]`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean normalizes error text by removing variable parts.
//
// It is a pure function and idempotent: Clean(Clean(s)) == Clean(s).
// Empty input yields "".
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := raw

	cleaned = isoTimestampRe.ReplaceAllString(cleaned, "")
	cleaned = timeOfDayRe.ReplaceAllString(cleaned, "")

	cleaned = colonLocatorRe.ReplaceAllString(cleaned, "")
	cleaned = lineRe.ReplaceAllString(cleaned, "line X")
	cleaned = columnRe.ReplaceAllString(cleaned, "column X")

	// Collapse absolute paths to the basename.
	cleaned = unixPathRe.ReplaceAllString(cleaned, "$2")
	cleaned = windowsPathRe.ReplaceAllString(cleaned, "$2")

	cleaned = fieldIDRe.ReplaceAllString(cleaned, "fld_ID")
	cleaned = field2IDRe.ReplaceAllString(cleaned, "field_ID")
	cleaned = revIDRe.ReplaceAllString(cleaned, "rev_ID")
	cleaned = longNumRe.ReplaceAllString(cleaned, "_TIMESTAMP")
	cleaned = hexAddrRe.ReplaceAllString(cleaned, "0xADDR")

	cleaned = parenCoordRe.ReplaceAllString(cleaned, "(X, Y)")
	cleaned = brackCoordRe.ReplaceAllString(cleaned, "[X, Y]")

	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")

	return strings.TrimSpace(cleaned)
}
