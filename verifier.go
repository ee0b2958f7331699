package merklelog

import (
	"bytes"
	"errors"

	"merklelog.local/hasher"
)

var (
	// ErrInvalidProof reports a proof that is malformed for the claimed
	// leaf index and tree sizes: wrong length, or a shape that cannot fold
	// to any root.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrInconsistentRoots reports a proof that folds correctly to the
	// newer root but contradicts the older one. Unlike ErrInvalidProof
	// this is evidence against the log, not against the prover.
	ErrInconsistentRoots = errors.New("roots are inconsistent")
)

// MerkleVerifier checks inclusion paths and consistency proofs produced by a
// MerkleTree. Verification is a pure function over digests: a verifier holds
// no tree state and needs only the same tree hasher the log commits with.
type MerkleVerifier struct {
	th *hasher.TreeHasher
}

// NewMerkleVerifier creates a verifier committing with the given tree hasher,
// of which it takes exclusive ownership.
func NewMerkleVerifier(th *hasher.TreeHasher) *MerkleVerifier {
	return &MerkleVerifier{th: th}
}

// RootFromPath folds the leaf data with an inclusion path and returns the
// root the path commits to. The path is ordered from the leaf's sibling
// upward and includes neither the leaf hash nor the root, as produced by
// MerkleTree.PathToRootAtSnapshot.
func (v *MerkleVerifier) RootFromPath(leaf, treeSize uint64, path [][]byte, data []byte) ([]byte, error) {
	if leaf == 0 || leaf > treeSize {
		return nil, ErrNoSuchLeaf
	}

	nodeIdx := leaf - 1
	lastNode := treeSize - 1
	nodeHash := v.th.HashLeaf(data)
	i := 0

	for lastNode != 0 {
		if isRightChild(nodeIdx) {
			if i >= len(path) {
				return nil, ErrInvalidProof
			}
			nodeHash = v.th.HashChildren(path[i], nodeHash)
			i++
		} else if nodeIdx < lastNode {
			if i >= len(path) {
				return nil, ErrInvalidProof
			}
			nodeHash = v.th.HashChildren(nodeHash, path[i])
			i++
		}
		// Else the sibling does not exist and the parent is a carry
		// copy; nothing to hash.

		nodeIdx = parent(nodeIdx)
		lastNode = parent(lastNode)
	}

	if i != len(path) {
		return nil, ErrInvalidProof
	}
	return nodeHash, nil
}

// VerifyPath reports whether path proves that the leaf-th leaf of a tree of
// treeSize leaves holds data, for a tree with the given root.
func (v *MerkleVerifier) VerifyPath(leaf, treeSize uint64, path [][]byte, root, data []byte) bool {
	computed, err := v.RootFromPath(leaf, treeSize, path, data)
	return err == nil && bytes.Equal(computed, root)
}

// VerifyConsistency checks a consistency proof between root1 at snapshot1 and
// root2 at snapshot2, as produced by MerkleTree.SnapshotConsistency. A nil
// return means snapshot2's leaf sequence extends snapshot1's with nothing
// altered or reordered. ErrInvalidProof means the proof does not fold to
// root2; ErrInconsistentRoots means it does, yet contradicts root1.
func (v *MerkleVerifier) VerifyConsistency(snapshot1, snapshot2 uint64, root1, root2 []byte, proof [][]byte) error {
	if snapshot1 > snapshot2 {
		return ErrInvalidProof
	}
	if snapshot1 == snapshot2 {
		if !bytes.Equal(root1, root2) {
			return ErrInconsistentRoots
		}
		return nil
	}
	if snapshot1 == 0 {
		// Anything is consistent with the empty tree.
		return nil
	}

	// A consistency proof is an inclusion path for the rightmost node of
	// snapshot1 within snapshot2, pre-folded up to the first node that
	// exists only in the newer tree. Fold the two roots in parallel.
	nodeIdx := snapshot1 - 1
	lastNode := snapshot2 - 1
	for isRightChild(nodeIdx) {
		nodeIdx = parent(nodeIdx)
		lastNode = parent(lastNode)
	}

	var oldHash, newHash []byte
	i := 0
	if nodeIdx != 0 {
		if len(proof) == 0 {
			return ErrInvalidProof
		}
		oldHash, newHash = proof[0], proof[0]
		i = 1
	} else {
		// Snapshot1 was a power of two; its root is the anchor.
		oldHash, newHash = root1, root1
	}

	for nodeIdx != 0 {
		if isRightChild(nodeIdx) {
			// The left sibling exists in both trees.
			if i >= len(proof) {
				return ErrInvalidProof
			}
			oldHash = v.th.HashChildren(proof[i], oldHash)
			newHash = v.th.HashChildren(proof[i], newHash)
			i++
		} else if nodeIdx < lastNode {
			// The right sibling exists only in the newer tree.
			if i >= len(proof) {
				return ErrInvalidProof
			}
			newHash = v.th.HashChildren(newHash, proof[i])
			i++
		}
		// Else a lone left child in both trees; nothing to fold.

		nodeIdx = parent(nodeIdx)
		lastNode = parent(lastNode)
	}

	// If the trees have different heights, keep folding toward the newer
	// root.
	for lastNode != 0 {
		if i >= len(proof) {
			return ErrInvalidProof
		}
		newHash = v.th.HashChildren(newHash, proof[i])
		i++
		lastNode = parent(lastNode)
	}

	if i != len(proof) || !bytes.Equal(newHash, root2) {
		return ErrInvalidProof
	}
	if !bytes.Equal(oldHash, root1) {
		// The proof reproduces the newer root but not the older one:
		// the log itself is inconsistent.
		return ErrInconsistentRoots
	}
	return nil
}
