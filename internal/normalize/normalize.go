// Package normalize provides utilities for normalizing labels and names
// read from metadata files and directory listings.
package normalize

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Label returns the canonical form of a class or category label: surrounding
// whitespace trimmed, null bytes dropped, and Unicode composed to NFC.
//
// Labels arrive from two sources that disagree on composition: JSON metadata
// (usually NFC) and directory names read back from disk (NFD on macOS).
// Comparing NFC forms keeps a precomposed "é" and "e" plus a combining accent
// from splitting one anomaly type into two.
func Label(s string) string {
	return norm.NFC.String(sanitizeString(strings.TrimSpace(s)))
}

// RelPath normalizes a slash-separated relative path from metadata.
// Backslashes are treated as separators and the result is cleaned and NFC-composed.
// An empty input stays empty.
func RelPath(p string) string {
	p = sanitizeString(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	return norm.NFC.String(path.Clean(p))
}

// Equal reports whether two labels are the same after normalization.
func Equal(a, b string) bool {
	return Label(a) == Label(b)
}

// sanitizeString removes null bytes, which cannot appear in file names.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
