package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/neardup/internal/config"
)

func mustChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := NewChunker(size, overlap)
	if err != nil {
		t.Fatalf("NewChunker(%d, %d): %v", size, overlap, err)
	}
	return c
}

func TestNewChunker_invalid(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{100, 100},
		{100, 150},
		{0, 0},
		{100, -1},
	}
	for _, tt := range tests {
		_, err := NewChunker(tt.size, tt.overlap)
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("NewChunker(%d, %d) = %v, want ErrInvalidConfig", tt.size, tt.overlap, err)
		}
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := mustChunker(t, 50, 10)
	if chunks := c.Chunk("   \n\n\t  "); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestChunker_shortTextSingleChunk(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	text := "First paragraph.\n\nSecond paragraph."
	chunks := c.Chunk(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("got %q", chunks)
	}
}

func TestChunker_carriesOverlapTail(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	a := strings.Repeat("a", 400)
	b := strings.Repeat("b", 400)
	d := strings.Repeat("c", 400)
	chunks := c.Chunk(a + "\n\n" + b + "\n\n" + d)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != a+"\n\n"+b {
		t.Errorf("first chunk should hold the first two paragraphs")
	}
	want := strings.Repeat("b", 200) + "\n\n" + d
	if chunks[1] != want {
		t.Errorf("second chunk should start with the 200-char tail of the first")
	}
}

func TestChunker_zeroOverlap(t *testing.T) {
	c := mustChunker(t, 1000, 0)
	a := strings.Repeat("a", 600)
	b := strings.Repeat("b", 600)
	chunks := c.Chunk(a + "\n\n" + b)
	if !reflect.DeepEqual(chunks, []string{a, b}) {
		t.Errorf("zero overlap should not carry content, got %d chunks", len(chunks))
	}
}

func TestChunker_hardSplitsLongParagraph(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	var sb strings.Builder
	for i := 0; sb.Len() < 2500; i++ {
		fmt.Fprintf(&sb, "%d", i%10)
	}
	p := sb.String()[:2500]
	chunks := c.Chunk(p)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != p[:1000] || chunks[1] != p[800:1800] || chunks[2] != p[1600:] {
		t.Error("windows should advance by chunk_size - overlap")
	}
	for i, ch := range chunks {
		if utf8.RuneCountInString(ch) > 1000 {
			t.Errorf("chunk %d exceeds chunk size: %d", i, utf8.RuneCountInString(ch))
		}
	}
}

func TestChunker_multibyteNeverSplitMidCharacter(t *testing.T) {
	c := mustChunker(t, 1000, 0)
	p := strings.Repeat("日", 1500)
	chunks := c.Chunk(p)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if utf8.RuneCountInString(chunks[0]) != 1000 || utf8.RuneCountInString(chunks[1]) != 500 {
		t.Errorf("unexpected chunk lengths")
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
}

func TestChunker_deterministicAndNonEmpty(t *testing.T) {
	c := mustChunker(t, 120, 30)
	var paras []string
	for i := 0; i < 20; i++ {
		paras = append(paras, strings.Repeat(fmt.Sprintf("word%d ", i), i%7+1))
	}
	text := Normalize(strings.Join(paras, "\n\n"))
	first := c.Chunk(text)
	second := c.Chunk(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking should be deterministic")
	}
	if len(first) < 2 {
		t.Fatalf("expected several chunks, got %d", len(first))
	}
	for i, ch := range first {
		if strings.TrimSpace(ch) == "" || ch != strings.TrimSpace(ch) {
			t.Errorf("chunk %d is empty or untrimmed: %q", i, ch)
		}
	}
}

func TestChunker_chunksCoverInput(t *testing.T) {
	var paras []string
	for i := 0; i < 12; i++ {
		paras = append(paras, strings.TrimSpace(strings.Repeat(fmt.Sprintf("p%d ", i), i%5+3)))
	}
	text := Normalize(strings.Join(paras, "\n\n"))

	t.Run("no overlap rebuilds the text", func(t *testing.T) {
		chunks := mustChunker(t, 40, 0).Chunk(text)
		if got := strings.Join(chunks, "\n\n"); got != text {
			t.Errorf("joined chunks = %q, want %q", got, text)
		}
	})

	t.Run("overlap keeps every paragraph", func(t *testing.T) {
		chunks := mustChunker(t, 40, 10).Chunk(text)
		for _, p := range paras {
			found := false
			for _, ch := range chunks {
				if strings.Contains(ch, p) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("paragraph %q missing from chunks", p)
			}
		}
	})

	t.Run("hard split without overlap rebuilds the paragraph", func(t *testing.T) {
		long := strings.Repeat("abcdefghij", 25)
		chunks := mustChunker(t, 60, 0).Chunk(long)
		if got := strings.Join(chunks, ""); got != long {
			t.Errorf("joined windows = %q, want %q", got, long)
		}
	})
}

func TestChunker_longParagraphKeepsOverlapTail(t *testing.T) {
	c := mustChunker(t, 100, 20)
	a := strings.Repeat("a", 70)
	b := strings.Repeat("b", 150)
	chunks := c.Chunk(a + "\n\n" + b)
	want := []string{
		a,
		strings.Repeat("a", 20) + "\n\n" + strings.Repeat("b", 78),
		strings.Repeat("b", 92),
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("chunks = %q, want %q", chunks, want)
	}
}
