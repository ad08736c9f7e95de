//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hyperjump/neardup/internal/vector"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXProvider runs a local sentence-embedding model exported with a pooled
// "output" tensor of shape [1, dimensions]. It requires CGO and the
// onnxruntime shared library. Standard BERT exports need a
// WordPieceTokenizer over their vocab.txt; the HashTokenizer default only
// fits models trained on hashed ids.
type ONNXProvider struct {
	name       string
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer

	// Run() reads these tensors; Embed rewrites their data for each text.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXProvider loads the model at modelPath. The runtime environment is
// initialized on first use. A nil tokenizer uses HashTokenizer.
func NewONNXProvider(modelPath string, dimensions, maxTokens int, tokenizer Tokenizer) (*ONNXProvider, error) {
	if tokenizer == nil {
		tokenizer = &HashTokenizer{}
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, unavailable(fmt.Errorf("initialize runtime: %w", err))
		}
	}

	p := &ONNXProvider{
		name:       "onnx/" + filepath.Base(modelPath),
		dimensions: dimensions,
		maxTokens:  maxTokens,
		tokenizer:  tokenizer,
	}
	ids, mask, types := p.tokenizer.Tokenize("", maxTokens)
	shape := ort.NewShape(1, int64(len(ids)))

	var err error
	if p.inputIDs, err = ort.NewTensor(shape, ids); err != nil {
		return nil, unavailable(fmt.Errorf("create input_ids tensor: %w", err))
	}
	if p.attentionMask, err = ort.NewTensor(shape, mask); err != nil {
		p.Close()
		return nil, unavailable(fmt.Errorf("create attention_mask tensor: %w", err))
	}
	if p.tokenTypeIDs, err = ort.NewTensor(shape, types); err != nil {
		p.Close()
		return nil, unavailable(fmt.Errorf("create token_type_ids tensor: %w", err))
	}
	if p.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		p.Close()
		return nil, unavailable(fmt.Errorf("create output tensor: %w", err))
	}

	p.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{p.inputIDs, p.attentionMask, p.tokenTypeIDs},
		[]ort.ArbitraryTensor{p.output},
		nil,
	)
	if err != nil {
		p.Close()
		return nil, unavailable(fmt.Errorf("create session for %s: %w", modelPath, err))
	}
	return p, nil
}

// Embed runs the model once per text and unit-normalizes each output.
func (p *ONNXProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, types := p.tokenizer.Tokenize(text, p.maxTokens)
		copy(p.inputIDs.GetData(), ids)
		copy(p.attentionMask.GetData(), mask)
		copy(p.tokenTypeIDs.GetData(), types)

		if err := p.session.Run(); err != nil {
			return nil, &ProviderError{Provider: p.name, Kind: KindUnavailable, Err: fmt.Errorf("inference: %w", err)}
		}
		vec := make([]float32, p.dimensions)
		copy(vec, p.output.GetData())
		vector.NormalizeInPlace(vec)
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (p *ONNXProvider) Dimensions() int { return p.dimensions }

// Name returns "onnx/<model file>".
func (p *ONNXProvider) Name() string { return p.name }

// Close destroys the session and tensors.
func (p *ONNXProvider) Close() error {
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{p.inputIDs, p.attentionMask, p.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if p.output != nil {
		_ = p.output.Destroy()
	}
	p.inputIDs, p.attentionMask, p.tokenTypeIDs, p.output = nil, nil, nil, nil
	return err
}

func unavailable(err error) error {
	return &ProviderError{Provider: "onnx", Kind: KindUnavailable, Err: err}
}
