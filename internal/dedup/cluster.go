package dedup

import (
	"fmt"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/vector"
)

// radiusTolerance absorbs float32 storage and normalization rounding, which
// is on the order of 1e-8, so a pair at exactly the threshold links.
const radiusTolerance = 1e-6

// Radius converts a similarity threshold into a cosine-distance radius.
// The radius must lie strictly between 0 and 2.
func Radius(threshold float64) (float64, error) {
	r := 1 - threshold
	if r <= 0 || r >= 2 {
		return 0, config.Invalid("similarity_threshold", "gives neighbor radius %v outside (0, 2)", r)
	}
	return r, nil
}

// BuildClusters links every pair of vectors within the threshold radius and
// returns the connected components, members ascending, ordered by smallest
// member. Linking is transitive: if a~b and b~c then a, b and c share a
// cluster even when a and c are below the threshold.
func BuildClusters(vectors [][]float32, threshold float64) ([][]int, error) {
	radius, err := Radius(threshold)
	if err != nil {
		return nil, err
	}
	uf := NewUnionFind(len(vectors))
	if len(vectors) < 2 {
		return uf.Groups(), nil
	}

	idx, err := vector.NewMemoryIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if err := idx.Add(i, v); err != nil {
			return nil, fmt.Errorf("index vector %d: %w", i, err)
		}
	}
	for i, v := range vectors {
		hits, err := idx.Radius(v, radius+radiusTolerance)
		if err != nil {
			return nil, fmt.Errorf("radius search %d: %w", i, err)
		}
		for _, h := range hits {
			if h.ID != i {
				uf.Union(i, h.ID)
			}
		}
	}
	return uf.Groups(), nil
}
