package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is the sentinel wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the offending option.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateChunking checks chunk_size > 0, overlap >= 0 and overlap < chunk_size.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return Invalid("chunk_size", "must be positive (got %d)", chunkSize)
	}
	if overlap < 0 {
		return Invalid("overlap", "must not be negative (got %d)", overlap)
	}
	if overlap >= chunkSize {
		return Invalid("overlap", "must be smaller than chunk_size (got overlap=%d chunk_size=%d)", overlap, chunkSize)
	}
	return nil
}

// ValidateThreshold checks that t lies strictly between 0 and 1, so the
// neighbor radius 1-t is a usable cosine distance.
func ValidateThreshold(field string, t float64) error {
	if t <= 0 || t >= 1 {
		return Invalid(field, "must be in the open interval (0, 1) (got %v)", t)
	}
	return nil
}

// ValidatePolicy checks the representative policy name.
func ValidatePolicy(p string) error {
	switch strings.ToLower(p) {
	case "first", "longest":
		return nil
	}
	return Invalid("representative_policy", "must be first or longest (got %q)", p)
}

// Validate checks every option and returns the first problem found.
func (c *Config) Validate() error {
	if err := ValidateChunking(c.Chunking.ChunkSize, c.Chunking.Overlap); err != nil {
		return err
	}
	if c.Chunking.MinChars < 0 {
		return Invalid("min_chars", "must not be negative (got %d)", c.Chunking.MinChars)
	}
	if err := ValidateThreshold("document_threshold", c.Dedup.DocumentThreshold); err != nil {
		return err
	}
	if err := ValidateThreshold("row_threshold", c.Dedup.RowThreshold); err != nil {
		return err
	}
	if err := ValidatePolicy(c.Dedup.RepresentativePolicy); err != nil {
		return err
	}
	switch c.Embedding.Provider {
	case "openai", "onnx", "hash":
	default:
		return Invalid("embedding.provider", "must be openai, onnx or hash (got %q)", c.Embedding.Provider)
	}
	if c.Embedding.ModelName == "" {
		return Invalid("embedding.model_name", "must be set")
	}
	if c.Embedding.BatchSize <= 0 {
		return Invalid("embedding.batch_size", "must be positive (got %d)", c.Embedding.BatchSize)
	}
	if c.Embedding.Dimensions < 0 || (c.Embedding.Provider != "openai" && c.Embedding.Dimensions == 0) {
		return Invalid("embedding.dimensions", "must be positive (got %d)", c.Embedding.Dimensions)
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return Invalid("embedding.requests_per_minute", "must not be negative (got %d)", c.Embedding.RequestsPerMinute)
	}
	if c.Embedding.Provider == "onnx" && c.Embedding.ModelPath == "" {
		return Invalid("embedding.model_path", "must be set for the onnx provider")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return Invalid("server.port", "out of range (got %d)", c.Server.Port)
	}
	return nil
}
