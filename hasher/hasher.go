// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

// Package hasher provides the serial hash primitives and the domain-separated
// tree hasher used by the Merkle log. The tree never calls a raw hash function
// directly: domain separation between the empty tree, leaves and interior
// nodes is what makes the whole scheme collision resistant.
package hasher

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
)

// SerialHasher is a streaming hash primitive. Implementations are stateful:
// Reset must be called before each new digest computation.
type SerialHasher interface {
	// DigestSize returns the fixed output length in bytes.
	DigestSize() int

	// Reset discards any partially hashed input.
	Reset()

	// Update absorbs more input.
	Update(data []byte)

	// Final returns the digest of everything absorbed since the last Reset.
	// The hasher must be Reset before it is used again.
	Final() []byte
}

var _ SerialHasher = (*Sha256)(nil)
var _ SerialHasher = (*Keccak256)(nil)

// Sha256 is the default serial hasher, matching the certificate transparency
// log profile.
type Sha256 struct {
	h hash.Hash
}

func NewSha256() *Sha256 {
	return &Sha256{h: sha256.New()}
}

func (s *Sha256) DigestSize() int    { return sha256.Size }
func (s *Sha256) Reset()             { s.h.Reset() }
func (s *Sha256) Update(data []byte) { s.h.Write(data) }

func (s *Sha256) Final() []byte {
	return s.h.Sum(nil)
}

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also
// supports Read to get a variable amount of data from the hash state. Read is
// faster than Sum because it doesn't copy the internal state, but also
// modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// Keccak256 is an alternative serial hasher for logs that commit with
// legacy Keccak digests.
type Keccak256 struct {
	h KeccakState
}

func NewKeccak256() *Keccak256 {
	return &Keccak256{h: sha3.NewLegacyKeccak256().(KeccakState)}
}

func (k *Keccak256) DigestSize() int    { return 32 }
func (k *Keccak256) Reset()             { k.h.Reset() }
func (k *Keccak256) Update(data []byte) { k.h.Write(data) }

func (k *Keccak256) Final() []byte {
	// Read consumes the sponge state; Reset before reuse is already part of
	// the SerialHasher contract.
	b := make([]byte, 32)
	k.h.Read(b)
	return b
}
