package dedup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/models"
)

// tableProvider returns fixed vectors per text and records what it was asked.
type tableProvider struct {
	dim      int
	vecs     map[string][]float32
	failOn   int
	calls    int
	embedded []string
}

func newTableProvider(dim int) *tableProvider {
	return &tableProvider{dim: dim, vecs: map[string][]float32{}}
}

func (p *tableProvider) set(text string, v []float32) *tableProvider {
	p.vecs[text] = v
	return p
}

func (p *tableProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.calls == p.failOn {
		return nil, &embedding.ProviderError{Provider: "table", Kind: embedding.KindUnavailable, Err: errors.New("service down")}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := p.vecs[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
		p.embedded = append(p.embedded, t)
	}
	return out, nil
}

func (p *tableProvider) Dimensions() int { return p.dim }
func (p *tableProvider) Name() string    { return "table" }
func (p *tableProvider) Close() error    { return nil }

func basis(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func combine(dim int, terms map[int]float64) []float32 {
	v := make([]float32, dim)
	for i, w := range terms {
		v[i] = float32(w)
	}
	return v
}

// angle returns the 2-d unit vector at k*theta.
func angle(k, theta float64) []float32 {
	return []float32{float32(math.Cos(k * theta)), float32(math.Sin(k * theta))}
}

func doc(index int, name string, chunks ...string) *models.Document {
	d := &models.Document{Index: index, Name: name, Text: strings.Join(chunks, "\n\n")}
	for i, c := range chunks {
		d.Chunks = append(d.Chunks, models.Chunk{Index: i, Text: c})
	}
	return d
}

func row(index int, text string) *models.Document {
	return doc(index, fmt.Sprintf("row-%d", index), text)
}
