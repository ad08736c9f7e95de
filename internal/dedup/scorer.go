package dedup

import (
	"sort"

	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/vector"
)

// IsFlagged reports whether either signal reaches the threshold.
func IsFlagged(docSim, maxChunkSim, threshold float64) bool {
	return docSim >= threshold || maxChunkSim >= threshold
}

// MaxChunkSimilarity returns the best cosine over the cross product of two
// documents' chunk vectors. Either side being empty yields 0.
func MaxChunkSimilarity(a, b [][]float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	best := -1.0
	for _, va := range a {
		for _, vb := range b {
			if s := vector.Cosine(va, vb); s > best {
				best = s
			}
		}
	}
	return best
}

// ScorePairs scores every unordered pair of embedded documents. Each pair is
// emitted once with A ordered before B by name, then index. The result is
// sorted by the larger of the two signals, descending, then by A and B.
//
// Cost grows with the square of the document count times the product of
// their chunk counts.
func ScorePairs(docs []*models.Document, threshold float64) []models.SimilarityPair {
	ordered := make([]*models.Document, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool { return docLess(ordered[i], ordered[j]) })

	chunkVecs := make([][][]float32, len(ordered))
	for i, d := range ordered {
		chunkVecs[i] = d.ChunkVectors()
	}

	pairs := make([]models.SimilarityPair, 0, len(ordered)*(len(ordered)-1)/2)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			docSim := vector.Cosine(a.Vector, b.Vector)
			chunkSim := MaxChunkSimilarity(chunkVecs[i], chunkVecs[j])
			pairs = append(pairs, models.SimilarityPair{
				A:           a.Name,
				B:           b.Name,
				AIndex:      a.Index,
				BIndex:      b.Index,
				DocSim:      docSim,
				MaxChunkSim: chunkSim,
				Flagged:     IsFlagged(docSim, chunkSim, threshold),
			})
		}
	}
	SortPairs(pairs)
	return pairs
}

// SortPairs orders pairs by score descending, then by A and B.
func SortPairs(pairs []models.SimilarityPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		si, sj := pairs[i].Score(), pairs[j].Score()
		if si != sj {
			return si > sj
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		if pairs[i].B != pairs[j].B {
			return pairs[i].B < pairs[j].B
		}
		return pairs[i].AIndex < pairs[j].AIndex
	})
}

func docLess(a, b *models.Document) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Index < b.Index
}
