package sheet

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded, trimmed form of s for caseless matching of
// sheet names, config headers and file names.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// EqualFold reports whether a and b match caselessly.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether s contains sub caselessly.
func ContainsFold(s, sub string) bool {
	return strings.Contains(Fold(s), Fold(sub))
}
