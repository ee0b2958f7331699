// Package merklelog implements append-only binary Merkle hash trees in the
// style of certificate transparency logs: compact commitments to an ordered
// sequence of records, with logarithmic inclusion proofs against any root and
// consistency proofs between any two roots.
//
// Rather than using a hash function directly, the tree uses a
// hasher.TreeHasher that domain-separates leaves from interior nodes, which
// ensures collision resistance across node types.
package merklelog

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"

	"merklelog.local/hasher"
	"merklelog.local/node"
)

var (
	// ErrNoSuchLeaf reports a leaf index of 0 or beyond the relevant leaf
	// count.
	ErrNoSuchLeaf = errors.New("no such leaf")

	// ErrFutureSnapshot reports a snapshot larger than the current leaf
	// count.
	ErrFutureSnapshot = errors.New("snapshot is in the future")

	// ErrDegenerateConsistency reports a consistency request with
	// snapshot1 = 0 or snapshot1 >= snapshot2, for which no proof is
	// defined.
	ErrDegenerateConsistency = errors.New("degenerate consistency request")
)

// MerkleTree is an append-only Merkle hash tree. Leaves are appended in order
// and never removed; roots, inclusion paths and consistency proofs can be
// produced for the current tree or for any earlier snapshot (= leaf count).
//
// The tree evaluates lazily: AddLeaf only stores the leaf hash, and pending
// leaves are folded into the upper levels when a root or proof is requested.
// The fold cursor and the node store are guarded by an internal mutex, making
// the mutation hiding behind logically read-only calls such as CurrentRoot
// explicit; the tree is nevertheless intended for a single owner, and the
// injected hasher is owned exclusively for the lifetime of the tree.
type MerkleTree struct {
	mu     sync.Mutex
	levels *node.Arena
	th     *hasher.TreeHasher

	// leavesProcessed is the fold cursor: the number of leaves propagated
	// up to the root so far.
	leavesProcessed uint64

	// levelCount is the level count of the fully folded tree, maintained
	// eagerly. An empty tree has 0 levels, a tree with n leaves has
	// ceil(log2(n)) + 1.
	levelCount uint64
}

// NewMerkleTree creates an empty tree committing with the given tree hasher.
// The tree takes exclusive ownership of the hasher.
func NewMerkleTree(th *hasher.TreeHasher) *MerkleTree {
	return &MerkleTree{levels: node.NewArena(), th: th}
}

// Index of the parent node in the level above.
func parent(i uint64) uint64 { return i >> 1 }

// True if the node is a right child; false if it is the left (or only) child.
func isRightChild(i uint64) bool { return i&1 == 1 }

// Index of the node's (left or right) sibling in the same level.
func sibling(i uint64) uint64 {
	if isRightChild(i) {
		return i - 1
	}
	return i + 1
}

func isPowerOfTwoPlusOne(n uint64) bool {
	if n == 0 {
		return false
	}
	// n is one more than a power of two iff (n-1) & (n-2) has no bits set.
	return n == 1 || (n-1)&(n-2) == 0
}

// DigestSize returns the length of a node digest in bytes.
func (t *MerkleTree) DigestSize() int { return t.th.DigestSize() }

// LeafCount returns the number of leaves in the tree.
func (t *MerkleTree) LeafCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leafCount()
}

func (t *MerkleTree) leafCount() uint64 {
	if t.levels.Levels() == 0 {
		return 0
	}
	return t.levels.Width(0)
}

// LevelCount returns the number of levels of the fully folded tree. An empty
// tree has 0 levels, one leaf gives 1 level, two leaves 2 levels, and n
// leaves ceil(log2(n)) + 1 levels.
func (t *MerkleTree) LevelCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.levelCount
}

// LeafHash returns the stored hash of the leaf-th leaf. Indexing starts at 1.
func (t *MerkleTree) LeafHash(leaf uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if leaf == 0 || leaf > t.leafCount() {
		return nil, ErrNoSuchLeaf
	}
	return slices.Clone(t.levels.Digest(0, leaf-1)), nil
}

// HashLeaf returns the leaf hash of data without appending it to the tree.
func (t *MerkleTree) HashLeaf(data []byte) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.th.HashLeaf(data)
}

// AddLeaf appends a new leaf record. Only the leaf hash is stored, never the
// data; folding into the upper levels is deferred until a root or proof is
// requested. Returns the 1-based position of the leaf, which equals the new
// leaf count.
func (t *MerkleTree) AddLeaf(data []byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLeafHash(t.th.HashLeaf(data))
}

// AddLeafHash appends an already computed leaf hash. The caller is
// responsible for the hash being a domain-separated leaf digest of the
// correct size.
func (t *MerkleTree) AddLeafHash(hash []byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLeafHash(slices.Clone(hash))
}

func (t *MerkleTree) addLeafHash(hash []byte) uint64 {
	if t.levels.Levels() == 0 {
		t.levels.AddLevel()
		// The first leaf hash is also the first root.
		t.leavesProcessed = 1
	}
	t.levels.Append(0, node.Combine(hash))

	count := t.leafCount()
	// A k-level tree holds 2^(k-1) leaves, so the level count grows every
	// time the leaf count overflows a power of two. The root is not
	// updated here; the tree is evaluated lazily.
	if isPowerOfTwoPlusOne(count) {
		t.levelCount++
	}
	return count
}

// CurrentRoot folds any pending leaves and returns the root digest of the
// whole tree. An empty tree returns the hash of the empty string.
func (t *MerkleTree) CurrentRoot() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.leafCount() == 0 {
		return t.th.HashEmpty()
	}
	return slices.Clone(t.updateToSnapshot(t.leafCount()))
}

// RootAtSnapshot returns the root of the tree as it was when it held exactly
// snapshot leaves. Snapshot 0 is the empty tree. Returns ErrFutureSnapshot if
// the tree has never been that large.
func (t *MerkleTree) RootAtSnapshot(snapshot uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snapshot == 0 {
		return t.th.HashEmpty(), nil
	}
	if snapshot > t.leafCount() {
		return nil, ErrFutureSnapshot
	}
	if snapshot >= t.leavesProcessed {
		return slices.Clone(t.updateToSnapshot(snapshot)), nil
	}
	// snapshot < leavesProcessed: reconstruct the root in a side buffer,
	// without touching the frozen store.
	root, _ := t.recomputePastSnapshot(snapshot, 0, false)
	return root, nil
}

// PathToCurrentRoot returns the Merkle inclusion path from the leaf-th leaf
// (1-based) to the current root: the sibling of the leaf hash first, ending
// one level below the root. The root itself is not included.
func (t *MerkleTree) PathToCurrentRoot(leaf uint64) ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathToRootAtSnapshot(leaf, t.leafCount())
}

// PathToRootAtSnapshot returns the inclusion path from the leaf-th leaf
// (1-based) to the root of the given snapshot. A single-leaf snapshot yields
// a valid empty path; invalid leaf indices return ErrNoSuchLeaf and future
// snapshots return ErrFutureSnapshot.
func (t *MerkleTree) PathToRootAtSnapshot(leaf, snapshot uint64) ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathToRootAtSnapshot(leaf, snapshot)
}

func (t *MerkleTree) pathToRootAtSnapshot(leaf, snapshot uint64) ([][]byte, error) {
	if snapshot > t.leafCount() {
		return nil, ErrFutureSnapshot
	}
	if leaf == 0 || leaf > snapshot {
		return nil, ErrNoSuchLeaf
	}
	return t.pathFromNodeToRootAtSnapshot(leaf-1, 0, snapshot), nil
}

// SnapshotConsistency returns the consistency proof showing that the tree at
// snapshot2 is an append-only extension of the tree at snapshot1. Two equal
// snapshots or a snapshot1 of 0 are degenerate requests and return
// ErrDegenerateConsistency; a snapshot beyond the current leaf count returns
// ErrFutureSnapshot.
func (t *MerkleTree) SnapshotConsistency(snapshot1, snapshot2 uint64) ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snapshot1 == 0 || snapshot1 >= snapshot2 {
		return nil, ErrDegenerateConsistency
	}
	if snapshot2 > t.leafCount() {
		return nil, ErrFutureSnapshot
	}

	level := 0
	// Rightmost node in snapshot1.
	nodeIdx := snapshot1 - 1
	// Compute the compressed path to the root of snapshot2. Everything
	// left of nodeIdx is identical in both trees and needs no recording.
	for isRightChild(nodeIdx) {
		nodeIdx = parent(nodeIdx)
		level++
	}

	if snapshot2 > t.leavesProcessed {
		// Bring the tree sufficiently up to date.
		t.updateToSnapshot(snapshot2)
	}

	var proof [][]byte
	// Record the node, unless it is already the root of snapshot1.
	if nodeIdx != 0 {
		proof = append(proof, slices.Clone(t.levels.Digest(level, nodeIdx)))
	}

	// Now record the path from this node to the root of snapshot2.
	return append(proof, t.pathFromNodeToRootAtSnapshot(nodeIdx, level, snapshot2)...), nil
}

// updateToSnapshot advances the fold cursor to the given snapshot and returns
// the root digest, shared with the store. Folding proceeds level by level:
// adjacent pairs of unprocessed nodes hash into the level above, and a lone
// trailing left child propagates up as a tagged carry copy. Each node is
// computed exactly once over the lifetime of the tree, except the single
// right-border parent per level, which is popped and replaced as its right
// subtree grows.
func (t *MerkleTree) updateToSnapshot(snapshot uint64) []byte {
	if snapshot == 0 {
		return t.th.HashEmpty()
	}
	if snapshot == t.leavesProcessed {
		return t.levels.Top()
	}

	level := 0
	// Index of the first node to be processed at the current level.
	firstNode := t.leavesProcessed
	// Index of the last node.
	lastNode := snapshot - 1

	// Process level by level until we converge to a single node.
	for lastNode != 0 {
		if t.levels.Levels() <= level+1 {
			t.levels.AddLevel()
		} else if t.levels.Width(level+1) == parent(firstNode)+1 {
			// The leftmost parent at the level above may already
			// exist as a stale right-border node; replace it.
			t.levels.PopLast(level + 1)
		}

		// Compute the parents of new nodes at the current level,
		// starting from a left sibling and consuming pairs.
		for j := firstNode &^ 1; j < lastNode; j += 2 {
			t.levels.Append(level+1, node.Combine(
				t.th.HashChildren(t.levels.Digest(level, j), t.levels.Digest(level, j+1))))
		}
		// If the last node at the current level is a lone left child,
		// carry it up verbatim.
		if !isRightChild(lastNode) {
			t.levels.Append(level+1, node.Carry(t.levels.Digest(level, lastNode)))
		}

		firstNode = parent(firstNode)
		lastNode = parent(lastNode)
		level++
	}

	t.leavesProcessed = snapshot
	return t.levels.Top()
}

// recomputePastSnapshot reconstructs the root of an earlier snapshot from the
// frozen store, allocating only a transient running digest; nothing is
// inserted back into the store. If wantNode is set, it additionally records
// the rightmost border node of the snapshot at nodeLevel, which the path and
// consistency code reuse to avoid a second pass.
func (t *MerkleTree) recomputePastSnapshot(snapshot uint64, nodeLevel int, wantNode bool) (root, border []byte) {
	level := 0
	// Index of the rightmost node at the current level for this snapshot.
	lastNode := snapshot - 1

	if snapshot == t.leavesProcessed {
		// Nothing to recompute.
		if wantNode && t.levels.Levels() > nodeLevel {
			if nodeLevel > 0 {
				border = slices.Clone(t.levels.Last(nodeLevel).Digest)
			} else {
				// Leaf level: grab the last processed leaf.
				border = slices.Clone(t.levels.Digest(0, lastNode))
			}
		}
		return slices.Clone(t.levels.Top()), border
	}

	// Walk up the path of the last leaf while it is a right child: its
	// left sibling and parent are frozen and identical in the snapshot.
	for isRightChild(lastNode) {
		if wantNode && nodeLevel == level {
			border = slices.Clone(t.levels.Digest(level, lastNode))
		}
		lastNode = parent(lastNode)
		level++
	}

	// lastNode is now a left child with no right sibling in the snapshot;
	// its stored value is the snapshot's subtree root at this level.
	subtreeRoot := slices.Clone(t.levels.Digest(level, lastNode))

	if wantNode && nodeLevel == level {
		border = slices.Clone(subtreeRoot)
	}

	for lastNode != 0 {
		if isRightChild(lastNode) {
			// Recombine with the frozen left sibling.
			subtreeRoot = t.th.HashChildren(t.levels.Digest(level, lastNode-1), subtreeRoot)
		}
		// Else the snapshot's parent is a carry copy of the running
		// node; nothing to hash.

		lastNode = parent(lastNode)
		level++
		if wantNode && nodeLevel == level {
			border = slices.Clone(subtreeRoot)
		}
	}

	return subtreeRoot, border
}

// pathFromNodeToRootAtSnapshot returns the path from the node at
// (index, level), both 0-based, to the root of the given snapshot.
func (t *MerkleTree) pathFromNodeToRootAtSnapshot(index uint64, level int, snapshot uint64) [][]byte {
	if snapshot == 0 {
		return nil
	}
	// Index of the last node at this level in the snapshot view.
	lastNode := (snapshot - 1) >> level
	if uint64(level) >= t.levelCount || index > lastNode || snapshot > t.leafCount() {
		return nil
	}

	if snapshot > t.leavesProcessed {
		// Bring the tree sufficiently up to date.
		t.updateToSnapshot(snapshot)
	}

	var path [][]byte
	// Move up, recording the sibling of the current node at each level.
	for lastNode != 0 {
		sib := sibling(index)
		if sib < lastNode {
			// The sibling is frozen; its stored value is correct
			// for the snapshot.
			path = append(path, slices.Clone(t.levels.Digest(level, sib)))
		} else if sib == lastNode {
			// The sibling is the snapshot's right border node, so
			// reconstruct its value as of the snapshot.
			_, border := t.recomputePastSnapshot(snapshot, level, true)
			path = append(path, border)
		}
		// Else the sibling does not exist in the snapshot; the parent
		// is a carry copy and there is nothing to record.

		index = parent(index)
		lastNode = parent(lastNode)
		level++
	}

	return path
}
