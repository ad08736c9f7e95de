// Package ingest turns raw inputs into normalized, chunked documents.
package ingest

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	paragraphBreak  = regexp.MustCompile(`\n\s*\n`)
)

// Normalize unifies line endings, collapses runs of spaces and tabs to one
// space, limits blank-line runs to a single empty line and trims the result.
// A CRLF pair becomes one newline.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SplitParagraphs splits text on blank lines and drops empty paragraphs.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeKey returns the exact-duplicate key of a text: case-folded with
// all whitespace runs collapsed to a single space.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
