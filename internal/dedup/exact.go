package dedup

// ExactGroups buckets inputs whose normalized keys are identical. The head
// of a bucket is its first occurrence.
type ExactGroups struct {
	// Heads lists bucket heads in ascending order.
	Heads []int
	// Members maps a head to every member of its bucket, ascending, head first.
	Members map[int][]int
	// HeadOf maps each input to its bucket head.
	HeadOf []int
}

// CollapseExact groups positions of keys by exact key equality. Applying it
// to the heads' keys again yields singleton buckets.
func CollapseExact(keys []string) *ExactGroups {
	g := &ExactGroups{
		Members: make(map[int][]int),
		HeadOf:  make([]int, len(keys)),
	}
	first := make(map[string]int, len(keys))
	for i, k := range keys {
		head, ok := first[k]
		if !ok {
			head = i
			first[k] = i
			g.Heads = append(g.Heads, i)
		}
		g.HeadOf[i] = head
		g.Members[head] = append(g.Members[head], i)
	}
	return g
}

// Duplicates returns the number of inputs that are not bucket heads.
func (g *ExactGroups) Duplicates() int {
	return len(g.HeadOf) - len(g.Heads)
}
