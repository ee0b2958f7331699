// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

// Package encoding defines the durable wire forms of log records: RLP for
// entries and tree heads written to storage, hex for rendering digests.
package encoding

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// LogEntry is a stored leaf record: the raw data at a 1-based position in the
// log. The tree itself never retains data; the entry store does.
type LogEntry struct {
	Index uint64
	Data  []byte
}

// TreeHead is a recorded commitment: the root of the tree at a given size.
// The timestamp is seconds since the Unix epoch. Signing the head is the
// caller's concern.
type TreeHead struct {
	TreeSize  uint64
	Timestamp uint64
	RootHash  []byte
}

// EncodeEntry serializes an entry to its RLP storage form.
func EncodeEntry(e LogEntry) ([]byte, error) {
	return rlp.EncodeToBytes(&e)
}

// DecodeEntry parses an RLP-encoded entry.
func DecodeEntry(raw []byte) (LogEntry, error) {
	var e LogEntry
	if err := rlp.DecodeBytes(raw, &e); err != nil {
		return LogEntry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// EncodeTreeHead serializes a tree head to its RLP storage form.
func EncodeTreeHead(h TreeHead) ([]byte, error) {
	return rlp.EncodeToBytes(&h)
}

// DecodeTreeHead parses an RLP-encoded tree head.
func DecodeTreeHead(raw []byte) (TreeHead, error) {
	var h TreeHead
	if err := rlp.DecodeBytes(raw, &h); err != nil {
		return TreeHead{}, fmt.Errorf("decode tree head: %w", err)
	}
	return h, nil
}

// ToHex renders a digest as a lowercase hex string.
func ToHex(digest []byte) string {
	return hex.EncodeToString(digest)
}

// FromHex parses a lowercase or uppercase hex digest.
func FromHex(s string) ([]byte, error) {
	digest, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}
	return digest, nil
}
