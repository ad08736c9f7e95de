//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXProvider is unavailable without CGO (see onnx.go).
type ONNXProvider struct{}

// NewONNXProvider always fails when built without CGO.
func NewONNXProvider(_ string, _, _ int, _ Tokenizer) (*ONNXProvider, error) {
	return nil, &ProviderError{
		Provider: "onnx",
		Kind:     KindUnavailable,
		Err:      errors.New("requires CGO; build with CGO_ENABLED=1 and onnxruntime installed"),
	}
}

func (p *ONNXProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("onnx provider unavailable")
}

func (p *ONNXProvider) Dimensions() int { return 0 }
func (p *ONNXProvider) Name() string    { return "onnx" }
func (p *ONNXProvider) Close() error    { return nil }
