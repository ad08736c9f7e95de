package config

import "time"

const (
	DefaultChunkSize         = 1000
	DefaultOverlap           = 200
	DefaultMinChars          = 200
	DefaultDocumentThreshold = 0.9
	DefaultRowThreshold      = 0.92
	DefaultBatchSize         = 64
	DefaultOpenAIModel       = "text-embedding-3-small"
)

// Default returns a fully populated configuration. Load decodes the file over
// it so that explicit zero values (overlap: 0, min_chars: 0) are kept.
func Default() *Config {
	cfg := &Config{
		Chunking: ChunkingConfig{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultOverlap,
			MinChars:  DefaultMinChars,
		},
		Embedding: EmbeddingConfig{MaxRetries: 5},
		Dedup: DedupConfig{
			DocumentThreshold:    DefaultDocumentThreshold,
			RowThreshold:         DefaultRowThreshold,
			RepresentativePolicy: "first",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills settings that are unset rather than wrong when zero.
// Chunk size and thresholds come from Default only, so an explicit zero
// reaches Validate and fails there.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = DefaultOpenAIModel
	}
	ApplyProviderDefaults(cfg)
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultBatchSize
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Dedup.RepresentativePolicy == "" {
		cfg.Dedup.RepresentativePolicy = "first"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".pptx", ".odt", ".odp", ".ods", ".xlsx"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

// ApplyProviderDefaults fills settings that depend on the selected provider.
// Hosted models report their own size; local ones need it up front.
func ApplyProviderDefaults(cfg *Config) {
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider != "openai" {
		cfg.Embedding.Dimensions = 384
	}
}
