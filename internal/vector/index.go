package vector

// NeighborIndex finds every stored vector within a cosine distance of a query.
type NeighborIndex interface {
	Add(id int, vector []float32) error
	Radius(query []float32, radius float64) ([]Neighbor, error)
	Size() int
}

// Neighbor is one radius search hit.
type Neighbor struct {
	ID       int
	Distance float64
}
