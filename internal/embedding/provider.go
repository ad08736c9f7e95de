// Package embedding provides embedding providers and batched, fail-fast
// embedding of text collections.
package embedding

import "context"

// Provider turns texts into vectors. Embed returns exactly one vector per
// input text, in input order. Implementations must be safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector size, or 0 when it is only known after
	// the first successful call.
	Dimensions() int
	// Name identifies the provider and model in logs and reports.
	Name() string
	Close() error
}
