package models

import "time"

// Mode selects what a dedup run produces.
type Mode string

const (
	// ModePairs scores every unordered document pair.
	ModePairs Mode = "pairs"
	// ModeClusters groups near-duplicates and keeps one representative each.
	ModeClusters Mode = "clusters"
)

// SimilarityPair is the score of one unordered document pair. A sorts before B.
type SimilarityPair struct {
	A           string  `json:"file_a"`
	B           string  `json:"file_b"`
	AIndex      int     `json:"index_a"`
	BIndex      int     `json:"index_b"`
	DocSim      float64 `json:"doc_sim"`
	MaxChunkSim float64 `json:"max_chunk_sim"`
	Flagged     bool    `json:"flagged"`
}

// Score is the larger of the two similarity signals; reports sort by it.
func (p SimilarityPair) Score() float64 {
	if p.MaxChunkSim > p.DocSim {
		return p.MaxChunkSim
	}
	return p.DocSim
}

// Cluster is a transitively closed group of near-duplicate inputs.
// Members is sorted ascending and includes Representative. Similarities is
// aligned with Members and holds each member's cosine similarity to the
// representative, which may fall below the threshold for chained members.
type Cluster struct {
	ID             int       `json:"id"`
	Representative int       `json:"representative"`
	Members        []int     `json:"members"`
	Similarities   []float64 `json:"similarities"`
}

// Size returns the number of members.
func (c *Cluster) Size() int { return len(c.Members) }

// ClusterMember is one cluster report row: a suppressed input and the
// representative kept in its place.
type ClusterMember struct {
	ClusterID   int     `json:"cluster_id"`
	KeptIndex   int     `json:"kept_row_idx"`
	MemberIndex int     `json:"member_row_idx"`
	KeptName    string  `json:"kept_name,omitempty"`
	MemberName  string  `json:"member_name,omitempty"`
	KeptText    string  `json:"kept_text"`
	MemberText  string  `json:"member_text"`
	Similarity  float64 `json:"similarity"`
	Exact       bool    `json:"exact"`
}

// RunReport is everything a single run produced. Pairs is set in pairs mode;
// Clusters, Members and Kept in clusters mode.
type RunReport struct {
	ID        string            `json:"id"`
	Mode      Mode              `json:"mode"`
	Source    string            `json:"source"`
	Model     string            `json:"model"`
	Threshold float64           `json:"threshold"`
	Policy    string            `json:"policy,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Documents int               `json:"documents"`
	Pairs     []SimilarityPair  `json:"pairs,omitempty"`
	Clusters  []Cluster         `json:"clusters,omitempty"`
	Members   []ClusterMember   `json:"members,omitempty"`
	Kept      []int             `json:"kept,omitempty"`
	Skipped   []SkippedDocument `json:"skipped,omitempty"`
}

// FlaggedCount returns the number of flagged pairs.
func (r *RunReport) FlaggedCount() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Flagged {
			n++
		}
	}
	return n
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Source    string    `json:"source"`
	Threshold float64   `json:"threshold"`
	Documents int       `json:"documents"`
	Flagged   int       `json:"flagged"`
	Clusters  int       `json:"clusters"`
	CreatedAt time.Time `json:"created_at"`
}
