// Package diff renders unified diffs between two versions of a generated file.
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Unified returns a unified diff from a to b, or "" when they are equal.
// A context of zero or less uses DefaultContext.
func Unified(aName, bName string, a, b []byte, context int) (string, error) {
	if string(a) == string(b) {
		return "", nil
	}
	if context <= 0 {
		context = DefaultContext
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	})
}

// splitLinesKeepNL splits s after each newline. A trailing chunk without a
// newline is kept as its own line.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
