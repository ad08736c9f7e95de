package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/neardup/internal/models"
	"go.uber.org/zap"
)

// Reader extracts plain text from a file. Binary formats are handled by the
// implementation; the loader only sees text.
type Reader interface {
	Extract(path string) (string, error)
}

// Batch is the outcome of loading: documents ready for embedding plus the
// inputs that were excluded and why.
type Batch struct {
	Documents []*models.Document
	Skipped   []models.SkippedDocument
}

// Loader normalizes and chunks inputs into documents.
type Loader struct {
	reader     Reader
	chunker    *Chunker
	minChars   int
	extensions []string
	recursive  bool
	logger     *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for skip warnings and debug output.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithMinChars drops documents whose normalized text is shorter than n characters.
func WithMinChars(n int) LoaderOption {
	return func(ld *Loader) { ld.minChars = n }
}

// WithExtensions restricts directory loading to the given extensions.
func WithExtensions(exts []string) LoaderOption {
	return func(ld *Loader) { ld.extensions = exts }
}

// WithRecursive controls whether subdirectories are loaded. Default true.
func WithRecursive(r bool) LoaderOption {
	return func(ld *Loader) { ld.recursive = r }
}

// NewLoader returns a loader. reader may be nil; files are then read as plain text.
func NewLoader(reader Reader, chunker *Chunker, opts ...LoaderOption) *Loader {
	ld := &Loader{
		reader:    reader,
		chunker:   chunker,
		recursive: true,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadDirectory reads every matching regular file under dir in lexical path
// order. Documents are named by their slash-separated path relative to dir.
// Files that fail extraction or are too short are skipped and reported; only
// a failure to walk the directory itself is returned as an error. Paths in
// exclude, such as report files written under dir, are never read.
func (ld *Loader) LoadDirectory(ctx context.Context, dir string, exclude ...string) (*Batch, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	excluded := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			excluded[abs] = true
		}
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	batch := &Batch{}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && !ld.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded[path] || !ld.Accepts(path) {
			return nil
		}
		// Resolve symlinks so only regular files are read
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		name := filepath.ToSlash(rel)

		raw, extractErr := ld.extract(path)
		if extractErr != nil {
			ld.skip(batch, name, models.StageExtract, extractErr.Error())
			return nil
		}
		ld.add(batch, name, raw)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absDir, err)
	}
	ld.logger.Debug("loaded directory",
		zap.String("dir", absDir),
		zap.Int("documents", len(batch.Documents)),
		zap.Int("skipped", len(batch.Skipped)))
	return batch, nil
}

// LoadTexts builds documents from named raw texts in the given order.
func (ld *Loader) LoadTexts(inputs []models.DocumentInput) *Batch {
	batch := &Batch{}
	for _, in := range inputs {
		ld.add(batch, in.Name, in.Text)
	}
	return batch
}

// Accepts reports whether path has an allowed extension. No configured
// extensions means every file is accepted.
func (ld *Loader) Accepts(path string) bool {
	if len(ld.extensions) == 0 {
		return true
	}
	return extensionAllowed(filepath.Ext(path), ld.extensions)
}

func (ld *Loader) add(batch *Batch, name, raw string) {
	text := Normalize(raw)
	if text == "" {
		ld.skip(batch, name, models.StageEmpty, "no text after normalization")
		return
	}
	if n := utf8.RuneCountInString(text); n < ld.minChars {
		ld.skip(batch, name, models.StageMinChars, fmt.Sprintf("%d characters, need at least %d", n, ld.minChars))
		return
	}
	doc := &models.Document{Index: len(batch.Documents), Name: name, Text: text}
	for i, c := range ld.chunker.Chunk(text) {
		doc.Chunks = append(doc.Chunks, models.Chunk{Index: i, Text: c})
	}
	batch.Documents = append(batch.Documents, doc)
}

func (ld *Loader) skip(batch *Batch, name, stage, reason string) {
	ld.logger.Warn("skipping document",
		zap.String("source", name),
		zap.String("stage", stage),
		zap.String("reason", reason))
	batch.Skipped = append(batch.Skipped, models.SkippedDocument{Source: name, Stage: stage, Reason: reason})
}

func (ld *Loader) extract(path string) (string, error) {
	if ld.reader != nil {
		return ld.reader.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// RowDocuments builds one single-chunk document per non-empty row, keeping
// the row position as the document index so reports refer to input rows.
// Rows that are empty after normalization are returned as skipped.
func RowDocuments(texts []string) *Batch {
	batch := &Batch{}
	for i, raw := range texts {
		text := Normalize(raw)
		if text == "" {
			batch.Skipped = append(batch.Skipped, models.SkippedDocument{
				Source: fmt.Sprintf("row %d", i),
				Stage:  models.StageEmpty,
				Reason: "empty text",
			})
			continue
		}
		batch.Documents = append(batch.Documents, &models.Document{
			Index:  i,
			Name:   fmt.Sprintf("row-%d", i),
			Text:   text,
			Chunks: []models.Chunk{{Index: 0, Text: text}},
		})
	}
	return batch
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
