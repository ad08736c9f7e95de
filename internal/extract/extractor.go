// Package extract provides text extraction from document files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no reader.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DefaultMaxFileSize bounds how much of a file is read into memory.
const DefaultMaxFileSize int64 = 100 << 20

// Extractor extracts plain text from document files.
type Extractor struct {
	maxFileSize int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize rejects files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) { e.maxFileSize = n }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extensions lists the supported extensions, lower case with leading dot.
func Extensions() []string {
	return []string{".txt", ".md", ".rst", ".pdf", ".docx", ".pptx", ".odt", ".odp", ".ods", ".xlsx"}
}

// Supported reports whether ext (with leading dot) has a reader.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range Extensions() {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content. Paragraph
// structure is kept as newlines so chunking can follow it.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if e.maxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat file: %w", err)
		}
		if info.Size() > e.maxFileSize {
			return "", fmt.Errorf("file is %d bytes, limit is %d", info.Size(), e.maxFileSize)
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractOOXML(content, docxFormat)
	case ".pptx":
		return extractOOXML(content, pptxFormat)
	case ".odt", ".odp", ".ods":
		return extractODF(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", ".rst":
		return extractPlain(content)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
