package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/neardup/internal/vector"
)

// HashProvider is an offline provider built on feature hashing of words and
// word bigrams. Identical texts get identical vectors and texts sharing most
// of their words score high, which is enough for tests and dry runs.
type HashProvider struct {
	dimensions int
}

// NewHashProvider returns a hashing provider producing vectors of the given size.
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashProvider{dimensions: dimensions}
}

// Embed returns one unit vector per text. Texts without words map to the zero vector.
func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashProvider) vector(text string) []float32 {
	v := make([]float32, p.dimensions)
	words := Words(text)
	add := func(feature string, weight float32) {
		h := hash64(feature)
		idx := int(h % uint64(p.dimensions))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		v[idx] += weight
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}
	vector.NormalizeInPlace(v)
	return v
}

// Dimensions returns the vector size.
func (p *HashProvider) Dimensions() int { return p.dimensions }

// Name returns "hash/<dimensions>".
func (p *HashProvider) Name() string { return fmt.Sprintf("hash/%d", p.dimensions) }

// Close is a no-op.
func (p *HashProvider) Close() error { return nil }
