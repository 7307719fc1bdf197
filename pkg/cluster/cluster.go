// Package cluster groups validated drafts that describe the same
// physical card. An exact pass groups drafts by normalized (name,
// issuer); a fuzzy pass then merges near-identical names within the same
// issuer using Levenshtein edit distance. Membership is transitive:
// matching is computed over a disjoint-set structure, not pairwise, so a
// chain of close names collapses into one cluster even when the ends of
// the chain are farther apart than the threshold.
package cluster

import (
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/rewardsense/cardmap/pkg/cards"
)

// Defaults. Fuzzy matching on very short names produces spurious
// low-distance matches, so names under the minimum length are only ever
// matched exactly.
const (
	DefaultMaxDistance        = 3 // match iff distance < this
	DefaultMinFuzzyNameLength = 4
)

// Cluster is a set of drafts believed to represent one physical card.
// Transient: built here, consumed immediately by the merger.
type Cluster struct {
	Drafts []cards.Draft
}

// Builder partitions drafts into clusters.
type Builder struct {
	maxDistance        int
	minFuzzyNameLength int
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxDistance sets the exclusive Levenshtein distance threshold:
// two names fuzzy-match iff their edit distance is strictly less than d.
func WithMaxDistance(d int) Option {
	return func(b *Builder) { b.maxDistance = d }
}

// WithMinFuzzyNameLength sets the minimum name length (in runes)
// eligible for fuzzy matching.
func WithMinFuzzyNameLength(n int) Option {
	return func(b *Builder) { b.minFuzzyNameLength = n }
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxDistance:        DefaultMaxDistance,
		minFuzzyNameLength: DefaultMinFuzzyNameLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Clusters partitions the drafts of one run. Every draft lands in
// exactly one cluster; a singleton cluster is a card with no detected
// duplicate. Output order is deterministic: clusters appear in order of
// their first member's input position, members in input order.
func (b *Builder) Clusters(drafts []cards.Draft) []Cluster {
	if len(drafts) == 0 {
		return nil
	}

	dsu := newDisjointSet(len(drafts))

	// Exact pass: identical (normalized name, normalized issuer).
	exact := make(map[string]int, len(drafts))
	for i, d := range drafts {
		key := d.NameKey + "\x00" + d.IssuerKey
		if first, ok := exact[key]; ok {
			dsu.union(first, i)
		} else {
			exact[key] = i
		}
	}

	// Fuzzy pass: pairwise within issuer buckets. O(n²) per bucket is
	// fine at catalog sizes, and bucketing keeps n small.
	for _, bucket := range b.issuerBuckets(drafts) {
		for x := 0; x < len(bucket); x++ {
			for y := x + 1; y < len(bucket); y++ {
				i, j := bucket[x], bucket[y]
				if dsu.find(i) == dsu.find(j) {
					continue
				}
				if b.fuzzyMatch(drafts[i].NameKey, drafts[j].NameKey) {
					dsu.union(i, j)
				}
			}
		}
	}

	return collect(drafts, dsu)
}

// issuerBuckets groups draft indices by normalized issuer. Drafts
// without an issuer key are never fuzzy candidates.
func (b *Builder) issuerBuckets(drafts []cards.Draft) map[string][]int {
	buckets := make(map[string][]int)
	for i, d := range drafts {
		if d.IssuerKey == "" {
			continue
		}
		if utf8.RuneCountInString(d.NameKey) < b.minFuzzyNameLength {
			continue
		}
		buckets[d.IssuerKey] = append(buckets[d.IssuerKey], i)
	}
	return buckets
}

func (b *Builder) fuzzyMatch(a, c string) bool {
	return levenshtein.ComputeDistance(a, c) < b.maxDistance
}

// collect materializes clusters from the disjoint set, keyed and ordered
// by each set's smallest member index.
func collect(drafts []cards.Draft, dsu *disjointSet) []Cluster {
	members := make(map[int][]int)
	for i := range drafts {
		root := dsu.find(i)
		members[root] = append(members[root], i)
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	out := make([]Cluster, 0, len(roots))
	for _, root := range roots {
		c := Cluster{Drafts: make([]cards.Draft, 0, len(members[root]))}
		for _, i := range members[root] {
			c.Drafts = append(c.Drafts, drafts[i])
		}
		out = append(out, c)
	}
	return out
}

// disjointSet is a union-find structure over draft indices. Roots are
// always the smallest index of their set, which makes cluster identity
// independent of union order.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]] // path halving
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(i, j int) {
	ri, rj := d.find(i), d.find(j)
	if ri == rj {
		return
	}
	if ri > rj {
		ri, rj = rj, ri
	}
	d.parent[rj] = ri
}
