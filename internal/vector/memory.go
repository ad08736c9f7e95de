package vector

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an exact, brute-force neighbor index. Vectors are stored
// unit-normalized so distance is 1 - inner product.
type MemoryIndex struct {
	dimensions int
	ids        []int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add stores a normalized copy of vector under id.
func (m *MemoryIndex) Add(id int, vector []float32) error {
	if len(vector) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, Normalize(vector))
	return nil
}

// Radius returns every stored vector whose cosine distance to query is at
// most radius, including the query itself when stored, ordered by distance
// then id.
func (m *MemoryIndex) Radius(query []float32, radius float64) ([]Neighbor, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	q := Normalize(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Neighbor
	for i, vec := range m.vectors {
		if d := Distance(q, vec); d <= radius {
			out = append(out, Neighbor{ID: m.ids[i], Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}
