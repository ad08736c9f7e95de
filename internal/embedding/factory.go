package embedding

import (
	"fmt"
	"os"

	"github.com/hyperjump/neardup/internal/config"
	"go.uber.org/zap"
)

// New builds the provider selected by cfg. A provider that cannot be built is
// an error; there is no fallback to another provider.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, config.Invalid("embedding.api_key_env", "environment variable %s is not set", cfg.APIKeyEnv)
		}
		p, err = NewOpenAIProvider(key, cfg.ModelName,
			WithBaseURL(cfg.BaseURL),
			WithDimensions(cfg.Dimensions),
			WithRequestsPerMinute(cfg.RequestsPerMinute),
			WithMaxRetries(cfg.MaxRetries),
			WithOpenAILogger(logger))
	case "onnx":
		var tok Tokenizer
		if cfg.VocabPath != "" {
			if tok, err = LoadVocab(cfg.VocabPath); err != nil {
				return nil, config.Invalid("embedding.vocab_path", "%v", err)
			}
		} else {
			logger.Warn("no embedding.vocab_path set: onnx model gets hashed token ids, which only suit models trained on them")
		}
		p, err = NewONNXProvider(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, tok)
	case "hash":
		p = NewHashProvider(cfg.Dimensions)
	default:
		return nil, config.Invalid("embedding.provider", "unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}
	logger.Info("embedding provider ready",
		zap.String("provider", p.Name()),
		zap.Int("dimensions", p.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	if cfg.CacheSize > 0 {
		return NewCachedProvider(p, cfg.CacheSize), nil
	}
	return p, nil
}
