// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

// Package store provides the durable key-value backends for the log: entries
// keyed by position and tree heads keyed by tree size.
package store

import (
	"encoding/binary"
	"errors"
)

// ErrNotFound is returned when a key has no value in the backend.
var ErrNotFound = errors.New("store: not found")

type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Close() error
}

// Key space prefixes. Entries and tree heads share one backend but never
// collide.
const (
	entryPrefix    = 'e'
	treeHeadPrefix = 'h'
)

// EntryKey returns the storage key of the entry at the given 1-based
// position.
func EntryKey(index uint64) []byte {
	return prefixedKey(entryPrefix, index)
}

// TreeHeadKey returns the storage key of the tree head recorded at the given
// tree size.
func TreeHeadKey(size uint64) []byte {
	return prefixedKey(treeHeadPrefix, size)
}

func prefixedKey(prefix byte, n uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], n)
	return key
}
