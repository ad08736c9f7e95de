package embedding

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/neardup/internal/vector"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAIProvider embeds texts with the OpenAI embeddings API. Rate limit and
// server errors are retried with exponential backoff; every other failure is
// returned at once as a *ProviderError.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	baseURL    string
	dimensions int
	observed   atomic.Int64
	maxRetries int
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = url }
}

// WithDimensions requests shortened vectors from models that support it.
func WithDimensions(d int) OpenAIOption {
	return func(p *OpenAIProvider) { p.dimensions = d }
}

// WithRequestsPerMinute throttles requests before they are sent. Zero disables throttling.
func WithRequestsPerMinute(n int) OpenAIOption {
	return func(p *OpenAIProvider) {
		if n > 0 {
			p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithMaxRetries caps retries of a single request.
func WithMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIProvider) { p.maxRetries = n }
}

// WithRetryBackOff sets the exponential backoff intervals.
func WithRetryBackOff(initial, maxInterval, maxElapsed time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = maxInterval
			b.MaxElapsedTime = maxElapsed
			return b
		}
	}
}

// WithOpenAILogger sets a logger for retry warnings.
func WithOpenAILogger(l *zap.Logger) OpenAIOption {
	return func(p *OpenAIProvider) { p.logger = l }
}

// NewOpenAIProvider returns a provider for model authenticated with apiKey.
func NewOpenAIProvider(apiKey, model string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, &ProviderError{Provider: "openai", Kind: KindAuth, Err: errors.New("API key is empty")}
	}
	p := &OpenAIProvider{
		model:      model,
		maxRetries: 5,
		logger:     zap.NewNop(),
	}
	WithRetryBackOff(500*time.Millisecond, 10*time.Second, 30*time.Second)(p)
	for _, opt := range opts {
		opt(p)
	}

	// Retries are handled here so they can be classified and logged.
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = openai.NewClient(clientOpts...)
	return p, nil
}

// Embed sends texts in one request and returns unit-normalized vectors in input order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dimensions > 0 {
		params.Dimensions = openai.Int(int64(p.dimensions))
	}

	var vecs [][]float32
	attempt := 0
	operation := func() error {
		attempt++
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		resp, err := p.client.Embeddings.New(ctx, params)
		if err != nil {
			perr := p.classify(ctx, err)
			if !retryable(perr) {
				return backoff.Permanent(perr)
			}
			p.logger.Warn("embedding request failed, retrying",
				zap.String("provider", p.Name()),
				zap.String("kind", string(perr.Kind)),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return perr
		}
		vecs, err = p.decode(resp, len(texts))
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.maxRetries)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return vecs, nil
}

// decode checks that the response holds exactly one embedding per input
// index and reorders by index.
func (p *OpenAIProvider) decode(resp *openai.CreateEmbeddingResponse, n int) ([][]float32, error) {
	if resp == nil {
		return nil, decodeError(p.Name(), "empty response")
	}
	if len(resp.Data) != n {
		return nil, decodeError(p.Name(), "got %d embeddings for %d inputs", len(resp.Data), n)
	}
	out := make([][]float32, n)
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= n {
			return nil, decodeError(p.Name(), "embedding index %d out of range", i)
		}
		if out[i] != nil {
			return nil, decodeError(p.Name(), "duplicate embedding index %d", i)
		}
		if len(d.Embedding) == 0 {
			return nil, decodeError(p.Name(), "embedding %d is empty", i)
		}
		v := toFloat32(d.Embedding)
		vector.NormalizeInPlace(v)
		out[i] = v
	}
	p.observed.Store(int64(len(out[0])))
	return out, nil
}

func (p *OpenAIProvider) classify(ctx context.Context, err error) *ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := KindBadRequest
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			kind = KindAuth
		case apiErr.StatusCode == http.StatusTooManyRequests && (apiErr.Code == "insufficient_quota" || apiErr.Type == "insufficient_quota"):
			kind = KindQuota
		case apiErr.StatusCode == http.StatusTooManyRequests:
			kind = KindRateLimit
		case apiErr.StatusCode >= 500:
			kind = KindUnavailable
		}
		return &ProviderError{Provider: p.Name(), Kind: kind, StatusCode: apiErr.StatusCode, Err: err}
	}
	if ctx.Err() != nil {
		return &ProviderError{Provider: p.Name(), Kind: KindNetwork, Err: ctx.Err()}
	}
	return &ProviderError{Provider: p.Name(), Kind: KindNetwork, Err: err}
}

func retryable(err *ProviderError) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch err.Kind {
	case KindRateLimit, KindUnavailable, KindNetwork:
		return true
	}
	return false
}

// Dimensions returns the requested size, else the size seen in the last response.
func (p *OpenAIProvider) Dimensions() int {
	if p.dimensions > 0 {
		return p.dimensions
	}
	return int(p.observed.Load())
}

// Name returns "openai/<model>".
func (p *OpenAIProvider) Name() string { return "openai/" + p.model }

// Close is a no-op; the HTTP client needs no teardown.
func (p *OpenAIProvider) Close() error { return nil }

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
