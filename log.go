package merklelog

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"merklelog.local/encoding"
	"merklelog.local/hasher"
	"merklelog.local/store"
)

// ErrCorruptedLog reports stored state that contradicts itself: an entry
// filed under the wrong position, or a rebuilt root that does not match a
// recorded tree head.
var ErrCorruptedLog = errors.New("corrupted log")

// Log is a durable append-only Merkle log: entries are written to a backing
// DB and folded into an in-memory MerkleTree that serves roots and proofs.
// The tree never stores entry data; the DB never stores interior nodes. On
// open, the tree is rebuilt by replaying the stored entries.
//
// Like the tree it wraps, a Log is for a single owner; callers sharing one
// must serialize access themselves.
type Log struct {
	db   store.DB
	tree *MerkleTree
}

// OpenLog opens (or creates) a log over the given DB, rebuilding the tree
// from stored entries. newHasher is called once per internal structure; each
// returned primitive is exclusively owned. If a tree head was recorded at the
// stored size, the rebuilt root is checked against it.
func OpenLog(db store.DB, newHasher func() hasher.SerialHasher) (*Log, error) {
	l := &Log{
		db:   db,
		tree: NewMerkleTree(hasher.NewTreeHasher(newHasher())),
	}

	for index := uint64(1); ; index++ {
		raw, err := db.Get(store.EntryKey(index))
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load entry %d: %w", index, err)
		}

		entry, err := encoding.DecodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("load entry %d: %w", index, err)
		}
		if entry.Index != index {
			return nil, fmt.Errorf("%w: entry %d filed under position %d",
				ErrCorruptedLog, entry.Index, index)
		}

		l.tree.AddLeaf(entry.Data)
	}

	if size := l.tree.LeafCount(); size > 0 {
		head, err := l.TreeHead(size)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// No head recorded at this size; nothing to check.
		case err != nil:
			return nil, err
		case !bytes.Equal(head.RootHash, l.tree.CurrentRoot()):
			return nil, fmt.Errorf("%w: rebuilt root %s does not match recorded head %s at size %d",
				ErrCorruptedLog,
				encoding.ToHex(l.tree.CurrentRoot()), encoding.ToHex(head.RootHash), size)
		}
	}

	return l, nil
}

// Size returns the number of entries in the log.
func (l *Log) Size() uint64 { return l.tree.LeafCount() }

// CurrentRoot returns the root digest over all entries.
func (l *Log) CurrentRoot() []byte { return l.tree.CurrentRoot() }

// Append stores a new entry durably and folds it into the tree, returning
// its 1-based position. The entry is written to the DB first, so a failed
// append never leaves the tree ahead of storage.
func (l *Log) Append(data []byte) (uint64, error) {
	position := l.tree.LeafCount() + 1

	raw, err := encoding.EncodeEntry(encoding.LogEntry{Index: position, Data: data})
	if err != nil {
		return 0, fmt.Errorf("append entry %d: %w", position, err)
	}
	if err := l.db.Put(store.EntryKey(position), raw); err != nil {
		return 0, fmt.Errorf("append entry %d: %w", position, err)
	}

	return l.tree.AddLeaf(data), nil
}

// Entry returns the data of the entry at the given 1-based position.
func (l *Log) Entry(index uint64) ([]byte, error) {
	if index == 0 || index > l.tree.LeafCount() {
		return nil, ErrNoSuchLeaf
	}

	raw, err := l.db.Get(store.EntryKey(index))
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", index, err)
	}
	entry, err := encoding.DecodeEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", index, err)
	}
	if entry.Index != index {
		return nil, fmt.Errorf("%w: entry %d filed under position %d",
			ErrCorruptedLog, entry.Index, index)
	}
	return entry.Data, nil
}

// InclusionProof returns the path proving the entry at position leaf is
// included in the root at the given tree size.
func (l *Log) InclusionProof(leaf, treeSize uint64) ([][]byte, error) {
	return l.tree.PathToRootAtSnapshot(leaf, treeSize)
}

// ConsistencyProof returns the proof that the root at size2 extends the root
// at size1.
func (l *Log) ConsistencyProof(size1, size2 uint64) ([][]byte, error) {
	return l.tree.SnapshotConsistency(size1, size2)
}

// RootAtSize returns the root the log had at an earlier size.
func (l *Log) RootAtSize(size uint64) ([]byte, error) {
	return l.tree.RootAtSnapshot(size)
}

// RecordTreeHead persists a tree head for the current size and returns it.
// Recording the same size twice overwrites the previous head with a fresh
// timestamp; the root cannot differ.
func (l *Log) RecordTreeHead() (encoding.TreeHead, error) {
	head := encoding.TreeHead{
		TreeSize:  l.tree.LeafCount(),
		Timestamp: uint64(time.Now().Unix()),
		RootHash:  l.tree.CurrentRoot(),
	}

	raw, err := encoding.EncodeTreeHead(head)
	if err != nil {
		return encoding.TreeHead{}, fmt.Errorf("record tree head at %d: %w", head.TreeSize, err)
	}
	if err := l.db.Put(store.TreeHeadKey(head.TreeSize), raw); err != nil {
		return encoding.TreeHead{}, fmt.Errorf("record tree head at %d: %w", head.TreeSize, err)
	}
	return head, nil
}

// TreeHead returns the head recorded at the given size, or store.ErrNotFound
// if none was recorded.
func (l *Log) TreeHead(size uint64) (encoding.TreeHead, error) {
	raw, err := l.db.Get(store.TreeHeadKey(size))
	if err != nil {
		return encoding.TreeHead{}, fmt.Errorf("tree head at %d: %w", size, err)
	}
	head, err := encoding.DecodeTreeHead(raw)
	if err != nil {
		return encoding.TreeHead{}, fmt.Errorf("tree head at %d: %w", size, err)
	}
	return head, nil
}

// Close closes the backing DB. The in-memory tree remains usable for reads
// but nothing further can be appended durably.
func (l *Log) Close() error {
	return l.db.Close()
}
