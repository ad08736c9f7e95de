package dedup

import (
	"strings"

	"github.com/hyperjump/neardup/internal/config"
)

// Policy picks which member of a cluster is kept.
type Policy string

const (
	// PolicyFirst keeps the member with the lowest input index.
	PolicyFirst Policy = "first"
	// PolicyLongest keeps the member with the longest text after case
	// folding and whitespace collapse, ties going to the lowest input index.
	PolicyLongest Policy = "longest"
)

// ParsePolicy parses a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFirst, PolicyLongest:
		return p, nil
	}
	return "", config.Invalid("representative_policy", "must be first or longest (got %q)", s)
}

// SelectRepresentative returns the member to keep. members must be sorted
// ascending; length reports a member's normalized text length.
func SelectRepresentative(members []int, length func(int) int, policy Policy) int {
	if len(members) == 0 {
		return -1
	}
	best := members[0]
	if policy != PolicyLongest {
		return best
	}
	bestLen := length(best)
	for _, m := range members[1:] {
		if l := length(m); l > bestLen {
			best, bestLen = m, l
		}
	}
	return best
}
