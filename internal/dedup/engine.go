// Package dedup finds near-duplicate documents and rows. One Engine serves
// both pairwise scoring and cluster-and-collapse so the two flows share
// normalization, embedding and similarity code.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/ingest"
	"github.com/hyperjump/neardup/internal/metrics"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/vector"
	"go.uber.org/zap"
)

// Options selects what a run produces.
type Options struct {
	Mode      models.Mode
	Threshold float64
	Policy    Policy
	BatchSize int
}

// Validate rejects unusable options. It runs before any embedding call.
func (o Options) Validate() error {
	switch o.Mode {
	case models.ModePairs, models.ModeClusters:
	default:
		return config.Invalid("mode", "must be pairs or clusters (got %q)", o.Mode)
	}
	if err := config.ValidateThreshold("similarity_threshold", o.Threshold); err != nil {
		return err
	}
	if o.Mode == models.ModeClusters {
		if _, err := ParsePolicy(string(o.Policy)); err != nil {
			return err
		}
		if _, err := Radius(o.Threshold); err != nil {
			return err
		}
	}
	if o.BatchSize <= 0 {
		return config.Invalid("embedding.batch_size", "must be positive (got %d)", o.BatchSize)
	}
	return nil
}

// Result is the outcome of a run. Pairs is set in pairs mode; Clusters,
// Members and Kept in clusters mode. Every index is a document Index.
type Result struct {
	Mode     models.Mode
	Pairs    []models.SimilarityPair
	Clusters []models.Cluster
	Members  []models.ClusterMember
	Kept     []int
	// ExactDuplicates counts inputs collapsed before embedding.
	ExactDuplicates int
	// Embedded counts texts sent to the provider.
	Embedded int
}

// Engine embeds documents with an injected provider and scores or clusters them.
type Engine struct {
	provider embedding.Provider
	logger   *zap.Logger
	recorder *metrics.Recorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder counts embedding batches.
func WithRecorder(r *metrics.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine returns an engine using provider for every embedding call.
func NewEngine(provider embedding.Provider, opts ...EngineOption) *Engine {
	e := &Engine{provider: provider, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes docs according to opts. Documents get their chunk
// embeddings and pooled vectors set. A provider failure aborts the run and
// returns a nil result.
func (e *Engine) Run(ctx context.Context, docs []*models.Document, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if e.provider == nil {
		return nil, config.Invalid("embedding.provider", "no provider configured")
	}
	if opts.Mode == models.ModePairs {
		return e.runPairs(ctx, docs, opts)
	}
	return e.runClusters(ctx, docs, opts)
}

func (e *Engine) runPairs(ctx context.Context, docs []*models.Document, opts Options) (*Result, error) {
	res := &Result{Mode: models.ModePairs, Pairs: []models.SimilarityPair{}}
	if len(docs) < 2 {
		e.logger.Warn("need at least two documents to compare", zap.Int("documents", len(docs)))
		return res, nil
	}
	n, err := e.embedDocuments(ctx, docs, opts.BatchSize)
	if err != nil {
		return nil, err
	}
	res.Embedded = n
	res.Pairs = ScorePairs(docs, opts.Threshold)

	flagged := 0
	for _, p := range res.Pairs {
		if p.Flagged {
			flagged++
		}
	}
	e.logger.Info("scored document pairs",
		zap.Int("documents", len(docs)),
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("flagged", flagged),
		zap.Float64("threshold", opts.Threshold))
	return res, nil
}

func (e *Engine) runClusters(ctx context.Context, docs []*models.Document, opts Options) (*Result, error) {
	res := &Result{Mode: models.ModeClusters, Kept: []int{}}
	if len(docs) == 0 {
		return res, nil
	}

	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = ingest.NormalizeKey(d.Text)
	}
	exact := CollapseExact(keys)
	res.ExactDuplicates = exact.Duplicates()

	heads := make([]*models.Document, len(exact.Heads))
	for i, h := range exact.Heads {
		heads[i] = docs[h]
	}
	n, err := e.embedDocuments(ctx, heads, opts.BatchSize)
	if err != nil {
		return nil, err
	}
	res.Embedded = n

	// Exact duplicates share their head's vectors.
	for i, d := range docs {
		if h := exact.HeadOf[i]; h != i {
			d.Vector = docs[h].Vector
		}
	}

	headVecs := make([][]float32, len(heads))
	for i, h := range heads {
		headVecs[i] = h.Vector
	}
	groups, err := BuildClusters(headVecs, opts.Threshold)
	if err != nil {
		return nil, err
	}

	policy, _ := ParsePolicy(string(opts.Policy))
	// Measured on the exact-duplicate key so members of one bucket tie.
	length := func(pos int) int { return utf8.RuneCountInString(keys[pos]) }
	for id, group := range groups {
		var members []int // positions in docs
		for _, hi := range group {
			members = append(members, exact.Members[exact.Heads[hi]]...)
		}
		sort.Ints(members)
		rep := SelectRepresentative(members, length, policy)

		cluster := models.Cluster{ID: id, Representative: docs[rep].Index}
		for _, m := range members {
			sim := vector.Cosine(docs[m].Vector, docs[rep].Vector)
			cluster.Members = append(cluster.Members, docs[m].Index)
			cluster.Similarities = append(cluster.Similarities, sim)
			if m == rep {
				continue
			}
			res.Members = append(res.Members, models.ClusterMember{
				ClusterID:   id,
				KeptIndex:   docs[rep].Index,
				MemberIndex: docs[m].Index,
				KeptName:    docs[rep].Name,
				MemberName:  docs[m].Name,
				KeptText:    docs[rep].Text,
				MemberText:  docs[m].Text,
				Similarity:  sim,
				Exact:       exact.HeadOf[m] == exact.HeadOf[rep],
			})
		}
		res.Clusters = append(res.Clusters, cluster)
		res.Kept = append(res.Kept, docs[rep].Index)
	}
	sort.Ints(res.Kept)

	e.logger.Info("clustered inputs",
		zap.Int("inputs", len(docs)),
		zap.Int("exact_duplicates", res.ExactDuplicates),
		zap.Int("embedded", res.Embedded),
		zap.Int("kept", len(res.Kept)),
		zap.Int("suppressed", len(res.Members)),
		zap.Float64("threshold", opts.Threshold),
		zap.String("policy", string(policy)))
	return res, nil
}

// embedDocuments embeds every chunk of docs in fixed-size batches, then sets
// chunk embeddings and the mean-pooled document vector. It returns the number
// of texts embedded.
func (e *Engine) embedDocuments(ctx context.Context, docs []*models.Document, batchSize int) (int, error) {
	var texts []string
	for _, d := range docs {
		texts = append(texts, d.ChunkTexts()...)
	}
	vecs, err := embedding.EmbedAll(ctx, e.provider, texts, batchSize,
		embedding.WithBatchLogger(e.logger),
		embedding.WithBatchHook(func(int, int) { e.recorder.BatchEmbedded(e.provider.Name()) }))
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}

	k := 0
	for _, d := range docs {
		for i := range d.Chunks {
			d.Chunks[i].Embedding = vecs[k]
			k++
		}
		d.Vector = vector.MeanPool(d.ChunkVectors())
	}
	return len(texts), nil
}
