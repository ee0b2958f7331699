package merklelog

import (
	"golang.org/x/exp/slices"

	"merklelog.local/hasher"
)

// CompactMerkleTree holds the same commitment as a MerkleTree over the same
// leaf sequence, but stores only the O(log n) subtree peaks needed to keep
// appending and to produce the current root. It cannot look back: no
// snapshot roots, no proofs. Useful for cheaply tracking the running root of
// a log, e.g. while replaying entries from storage.
type CompactMerkleTree struct {
	th *hasher.TreeHasher

	// peaks[i] is the root of a complete subtree of 2^i leaves awaiting a
	// right sibling, or nil. Mirrors the binary representation of the
	// leaf count.
	peaks [][]byte

	root            []byte
	leafCount       uint64
	leavesProcessed uint64
	levelCount      uint64
}

// NewCompactMerkleTree creates an empty compact tree committing with the
// given tree hasher, of which it takes exclusive ownership.
func NewCompactMerkleTree(th *hasher.TreeHasher) *CompactMerkleTree {
	return &CompactMerkleTree{th: th, root: th.HashEmpty()}
}

// LeafCount returns the number of leaves appended so far.
func (c *CompactMerkleTree) LeafCount() uint64 { return c.leafCount }

// LevelCount returns the level count of the equivalent full tree.
func (c *CompactMerkleTree) LevelCount() uint64 { return c.levelCount }

// AddLeaf appends a leaf record, storing only its hash. Returns the 1-based
// position of the leaf.
func (c *CompactMerkleTree) AddLeaf(data []byte) uint64 {
	return c.addLeafHash(c.th.HashLeaf(data))
}

// AddLeafHash appends an already computed leaf hash.
func (c *CompactMerkleTree) AddLeafHash(hash []byte) uint64 {
	return c.addLeafHash(slices.Clone(hash))
}

func (c *CompactMerkleTree) addLeafHash(hash []byte) uint64 {
	c.pushBack(0, hash)
	c.leafCount++
	if isPowerOfTwoPlusOne(c.leafCount) {
		c.levelCount++
	}
	return c.leafCount
}

// pushBack adds a subtree root at the given peak level, combining with a
// waiting left sibling and propagating upward as long as pairs complete.
func (c *CompactMerkleTree) pushBack(level int, n []byte) {
	if len(c.peaks) <= level {
		// First node at a new level.
		c.peaks = append(c.peaks, n)
	} else if c.peaks[level] == nil {
		// Lone left sibling.
		c.peaks[level] = n
	} else {
		// Left sibling waiting: hash together and propagate up.
		c.pushBack(level+1, c.th.HashChildren(c.peaks[level], n))
		c.peaks[level] = nil
	}
}

// CurrentRoot folds the peaks right to left and returns the root digest. An
// empty tree returns the hash of the empty string.
func (c *CompactMerkleTree) CurrentRoot() []byte {
	c.updateRoot()
	return slices.Clone(c.root)
}

func (c *CompactMerkleTree) updateRoot() {
	if c.leavesProcessed == c.leafCount {
		return
	}

	var right []byte
	for level := 0; level < len(c.peaks); level++ {
		if c.peaks[level] == nil {
			continue
		}
		// A lonely left sibling gets pulled up as a right sibling.
		if right == nil {
			right = c.peaks[level]
		} else {
			right = c.th.HashChildren(c.peaks[level], right)
		}
	}

	c.root = right
	c.leavesProcessed = c.leafCount
}
