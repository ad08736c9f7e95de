// Package utils provides shared helpers for logging and text display.
package utils

import "strings"

// Truncate returns s cut to maxLen characters with "..." appended when cut.
// Multibyte characters are never split. maxLen <= 0 returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// OneLine collapses newlines and tabs to single spaces for tabular display.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
