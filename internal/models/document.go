// Package models defines the data structures shared by the ingest, dedup,
// report and storage layers.
package models

// Document is one input text: a file's extracted content or a table row.
// Index is the position in the input collection and is the identity used by
// clustering and reports.
type Document struct {
	Index  int       `json:"index"`
	Name   string    `json:"name"`
	Text   string    `json:"text"`
	Chunks []Chunk   `json:"chunks,omitempty"`
	Vector []float32 `json:"-"`
}

// Chunk is a contiguous, non-empty piece of a document's normalized text.
type Chunk struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// ChunkTexts returns the text of every chunk in order.
func (d *Document) ChunkTexts() []string {
	out := make([]string, len(d.Chunks))
	for i, c := range d.Chunks {
		out[i] = c.Text
	}
	return out
}

// ChunkVectors returns the embedding of every chunk in order.
func (d *Document) ChunkVectors() [][]float32 {
	out := make([][]float32, len(d.Chunks))
	for i, c := range d.Chunks {
		out[i] = c.Embedding
	}
	return out
}

// DocumentInput is a named raw text submitted over the API.
type DocumentInput struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SkippedDocument records an input excluded from a run and why.
type SkippedDocument struct {
	Source string `json:"source"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Skip stages.
const (
	StageExtract  = "extract"
	StageMinChars = "min_chars"
	StageEmpty    = "empty"
)
