// Package node defines the level-indexed node store backing the Merkle log
// tree. Level 0 holds one node per leaf in append order; level k+1 holds the
// pairwise combinations of level k. A level with an odd node count propagates
// its unpaired last node upward as a verbatim carry copy, which is tagged
// explicitly so that it is never mistaken for a real combination and never
// re-hashed.
package node

// Kind discriminates how a node value was produced.
type Kind uint8

const (
	// Combined nodes are the hash of their two children.
	Combined Kind = iota

	// Carried nodes are verbatim copies of a lone left child one level
	// below. They are placeholders, not commitments: a carried node is
	// replaced once its right sibling subtree materializes.
	Carried
)

// A Node is a single digest in the store, tagged with its provenance.
type Node struct {
	Digest []byte
	Kind   Kind
}

// Combine wraps the digest of a real pairwise combination.
func Combine(digest []byte) Node { return Node{Digest: digest, Kind: Combined} }

// Carry wraps a verbatim copy of an unpaired child.
func Carry(digest []byte) Node { return Node{Digest: digest, Kind: Carried} }

// Arena is the append-only store of tree nodes, organized by level and sorted
// left to right within each level. Once both children of a node are frozen,
// the node itself never changes; only the rightmost node of a level may be
// popped and replaced during folding.
type Arena struct {
	levels [][]Node
}

func NewArena() *Arena {
	return &Arena{}
}

// Levels returns the number of materialized levels.
func (a *Arena) Levels() int { return len(a.levels) }

// AddLevel appends a new, empty level on top.
func (a *Arena) AddLevel() {
	a.levels = append(a.levels, nil)
}

// Width returns the number of nodes at the given level.
func (a *Arena) Width(level int) uint64 {
	return uint64(len(a.levels[level]))
}

// Append adds a node at the right edge of the given level.
func (a *Arena) Append(level int, n Node) {
	a.levels[level] = append(a.levels[level], n)
}

// At returns the node at (level, index).
func (a *Arena) At(level int, index uint64) Node {
	return a.levels[level][index]
}

// Digest returns the digest at (level, index). The returned slice is shared
// with the store and must not be modified.
func (a *Arena) Digest(level int, index uint64) []byte {
	return a.levels[level][index].Digest
}

// Last returns the rightmost node of the given level.
func (a *Arena) Last(level int) Node {
	nodes := a.levels[level]
	return nodes[len(nodes)-1]
}

// PopLast removes and returns the rightmost node of the given level. Folding
// uses this to replace the one parent whose right subtree was still growing;
// every other node is frozen.
func (a *Arena) PopLast(level int) Node {
	nodes := a.levels[level]
	last := nodes[len(nodes)-1]
	a.levels[level] = nodes[:len(nodes)-1]
	return last
}

// Top returns the digest of the single node at the highest materialized
// level. Valid only when folding has converged, except that a store holding
// nothing but unfolded leaves reports its first leaf (the root of a 1-leaf
// tree).
func (a *Arena) Top() []byte {
	return a.levels[len(a.levels)-1][0].Digest
}
