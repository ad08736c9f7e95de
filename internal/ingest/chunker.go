package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/neardup/internal/config"
)

const paragraphSep = "\n\n"

// Chunker packs paragraphs into chunks of about chunkSize characters,
// carrying the last overlap characters of each chunk into the next one.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker returns a chunker. It fails with a configuration error unless
// 0 <= overlap < chunkSize.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if err := config.ValidateChunking(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured chunk size in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits normalized text into trimmed, non-empty chunks. The same input
// always yields the same chunks. When a paragraph does not fit, the current
// chunk is closed and the next one starts with its last overlap characters
// followed by that paragraph. Whenever the seeded text is longer than
// chunkSize it is cut into windows of chunkSize characters, each starting
// overlap characters before the previous cut.
//
// Paragraphs are packed by counting one separator character each, while
// chunks join them with a blank line, so a packed chunk may run a few
// characters past chunkSize; only hard-split windows are strictly bounded.
func (c *Chunker) Chunk(text string) []string {
	paras := SplitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var (
		raw    []string
		cur    []string
		curLen int
	)
	flush := func() string {
		joined := strings.Join(cur, paragraphSep)
		raw = append(raw, joined)
		cur, curLen = nil, 0
		return joined
	}

	for _, p := range paras {
		n := utf8.RuneCountInString(p)
		if curLen+n+1 <= c.chunkSize {
			cur = append(cur, p)
			curLen += n + 1
			continue
		}

		var tail string
		if len(cur) > 0 {
			tail = lastRunes(flush(), c.overlap)
		}
		if tail != "" {
			p = tail + paragraphSep + p
			n = utf8.RuneCountInString(p)
		}
		if n > c.chunkSize {
			var windows []string
			windows, p = c.split(p)
			raw = append(raw, windows...)
			cur, curLen = []string{p}, utf8.RuneCountInString(p)+1
			continue
		}
		cur = []string{p}
		curLen = n + 1
	}
	if len(cur) > 0 {
		flush()
	}

	chunks := make([]string, 0, len(raw))
	for _, ch := range raw {
		if ch = strings.TrimSpace(ch); ch != "" {
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

// split cuts p into full windows and returns them with the remainder, which
// is at most chunkSize characters long.
func (c *Chunker) split(p string) ([]string, string) {
	r := []rune(p)
	var windows []string
	for len(r) > c.chunkSize {
		windows = append(windows, string(r[:c.chunkSize]))
		r = r[c.chunkSize-c.overlap:]
	}
	return windows, string(r)
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
