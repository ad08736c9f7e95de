package embedding

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"unicode"
)

// BERT special token ids.
const (
	tokenCLS   = 101
	tokenSEP   = 102
	vocabRange = 30000
	vocabFirst = 1000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps lower-cased words to hashed vocabulary ids. It is only
// suitable for models trained with the same hashing scheme: a standard BERT
// export reads the ids as unrelated word pieces. Use WordPieceTokenizer with
// the model's vocab.txt for those.
type HashTokenizer struct{}

// Tokenize returns [CLS] words... [SEP] padded to maxTokens.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1
	pos := 1
	for _, w := range Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = vocabFirst + int64(hash64(w)%uint64(vocabRange-vocabFirst))
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = tokenSEP
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Words lower-cases text and splits it on anything that is not a letter or digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// maxWordRunes is the longest word WordPiece will try to split; longer words
// become [UNK].
const maxWordRunes = 100

// WordPieceTokenizer implements uncased BERT tokenization against a model's
// vocabulary: lower-casing, splitting on whitespace and punctuation, then
// greedy longest-match word pieces with the "##" continuation prefix.
type WordPieceTokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
	pad   int64
}

// NewWordPieceTokenizer builds a tokenizer whose token ids are the positions
// in tokens. [CLS], [SEP] and [UNK] must be present.
func NewWordPieceTokenizer(tokens []string) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64, len(tokens))
	for i, tok := range tokens {
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = int64(i)
		}
	}
	t := &WordPieceTokenizer{vocab: vocab}
	for _, special := range []struct {
		name string
		id   *int64
	}{{"[CLS]", &t.cls}, {"[SEP]", &t.sep}, {"[UNK]", &t.unk}} {
		id, ok := vocab[special.name]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no %s token", special.name)
		}
		*special.id = id
	}
	t.pad = vocab["[PAD]"]
	return t, nil
}

// LoadVocab reads a vocab.txt file with one token per line.
func LoadVocab(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	var tokens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens = append(tokens, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	t, err := NewWordPieceTokenizer(tokens)
	if err != nil {
		return nil, fmt.Errorf("vocab %s: %w", path, err)
	}
	return t, nil
}

// Tokenize returns [CLS] pieces... [SEP] padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = t.pad
	}

	inputIDs[0] = t.cls
	attentionMask[0] = 1
	pos := 1
outer:
	for _, w := range basicTokens(text) {
		for _, id := range t.pieces(w) {
			if pos >= maxTokens-1 {
				break outer
			}
			inputIDs[pos] = id
			attentionMask[pos] = 1
			pos++
		}
	}
	inputIDs[pos] = t.sep
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// pieces splits one word greedily into the longest vocabulary entries.
func (t *WordPieceTokenizer) pieces(word string) []int64 {
	r := []rune(word)
	if len(r) > maxWordRunes {
		return []int64{t.unk}
	}
	var ids []int64
	for start := 0; start < len(r); {
		end := len(r)
		found := false
		for ; end > start; end-- {
			piece := string(r[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				ids = append(ids, id)
				found = true
				break
			}
		}
		if !found {
			return []int64{t.unk}
		}
		start = end
	}
	return ids
}

// basicTokens lower-cases text and splits it on whitespace, emitting every
// punctuation or symbol character as its own token.
func basicTokens(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
