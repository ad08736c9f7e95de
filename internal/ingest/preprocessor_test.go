package ingest

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"collapses spaces and tabs", "  a \t  b  ", "a b"},
		{"crlf becomes one newline", "a\r\nb", "a\nb"},
		{"lone cr becomes newline", "a\rb", "a\nb"},
		{"limits blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"keeps paragraph break", "a\n\nb", "a\n\nb"},
		{"empty", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("one\n\ntwo\n \nthree\n\n\n")
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitParagraphs = %q, want %q", got, want)
	}
}

func TestNormalizeKey(t *testing.T) {
	if NormalizeKey("  Hello\n  WORLD ") != "hello world" {
		t.Errorf("got %q", NormalizeKey("  Hello\n  WORLD "))
	}
}
