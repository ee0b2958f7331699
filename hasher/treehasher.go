// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

package hasher

var (
	leafPrefix = []byte{0x00}
	nodePrefix = []byte{0x01}
)

// TreeHasher domain-separates leaf hashes from interior node hashes on top of
// an injected SerialHasher. A TreeHasher takes exclusive ownership of its
// SerialHasher: the primitive must not be shared or used concurrently.
type TreeHasher struct {
	hasher SerialHasher
	empty  []byte // cached digest of the empty tree
}

func NewTreeHasher(hasher SerialHasher) *TreeHasher {
	return &TreeHasher{hasher: hasher}
}

// DigestSize returns the fixed length in bytes of every digest produced.
func (t *TreeHasher) DigestSize() int { return t.hasher.DigestSize() }

// HashEmpty returns the digest of the empty tree: the hash of the empty
// string, with no prefix. Distinct from any leaf or node hash.
func (t *TreeHasher) HashEmpty() []byte {
	if t.empty == nil {
		t.hasher.Reset()
		t.empty = t.hasher.Final()
	}

	out := make([]byte, len(t.empty))
	copy(out, t.empty)
	return out
}

// HashLeaf returns the domain-separated digest of a leaf record.
func (t *TreeHasher) HashLeaf(data []byte) []byte {
	t.hasher.Reset()
	t.hasher.Update(leafPrefix)
	t.hasher.Update(data)
	return t.hasher.Final()
}

// HashChildren returns the domain-separated digest of an interior node.
// The caller is responsible for passing correctly sized child digests.
func (t *TreeHasher) HashChildren(left, right []byte) []byte {
	t.hasher.Reset()
	t.hasher.Update(nodePrefix)
	t.hasher.Update(left)
	t.hasher.Update(right)
	return t.hasher.Final()
}
