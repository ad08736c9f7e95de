package embedding

import (
	"context"

	"go.uber.org/zap"
)

// BatchOption configures EmbedAll.
type BatchOption func(*batchRun)

type batchRun struct {
	logger  *zap.Logger
	onBatch func(batch, total int)
}

// WithBatchLogger logs each batch at debug level.
func WithBatchLogger(l *zap.Logger) BatchOption {
	return func(r *batchRun) { r.logger = l }
}

// WithBatchHook is called after every successful batch with its 1-based number.
func WithBatchHook(fn func(batch, total int)) BatchOption {
	return func(r *batchRun) { r.onBatch = fn }
}

// EmbedAll embeds texts in fixed-size batches and returns vectors aligned
// with texts. The first failing batch aborts the whole call with a
// *BatchError; no partial result is returned. Every batch is checked for one
// vector per input and a single consistent dimension.
func EmbedAll(ctx context.Context, p Provider, texts []string, batchSize int, opts ...BatchOption) ([][]float32, error) {
	run := &batchRun{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(run)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	total := (len(texts) + batchSize - 1) / batchSize
	dim := p.Dimensions()
	out := make([][]float32, 0, len(texts))
	for start, n := 0, 1; start < len(texts); start, n = start+batchSize, n+1 {
		end := min(start+batchSize, len(texts))
		fail := func(err error) error {
			return &BatchError{Batch: n, Total: total, Start: start, End: end, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return nil, fail(err)
		}

		vecs, err := p.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fail(err)
		}
		if len(vecs) != end-start {
			return nil, fail(decodeError(p.Name(), "got %d vectors for %d inputs", len(vecs), end-start))
		}
		for i, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, fail(decodeError(p.Name(), "item %d has dimension %d, want %d", start+i, len(v), dim))
			}
		}
		out = append(out, vecs...)

		run.logger.Debug("embedded batch",
			zap.String("provider", p.Name()),
			zap.Int("batch", n),
			zap.Int("total", total),
			zap.Int("items", end-start))
		if run.onBatch != nil {
			run.onBatch(n, total)
		}
	}
	return out, nil
}
