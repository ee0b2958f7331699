// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

package encoding

import (
	"bytes"
	"testing"
)

func TestEntryRoundTrip(t *testing.T) {
	want := LogEntry{Index: 42, Data: []byte("hello, log")}

	raw, err := EncodeEntry(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEntry(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Index != want.Index || !bytes.Equal(got.Data, want.Data) {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	if _, err := DecodeEntry([]byte{0xff, 0x00, 0xba, 0xad}); err == nil {
		t.Fatal("decoded garbage without error")
	}
	if _, err := DecodeEntry(nil); err == nil {
		t.Fatal("decoded empty input without error")
	}
}

func TestTreeHeadRoundTrip(t *testing.T) {
	want := TreeHead{
		TreeSize:  8,
		Timestamp: 1724800000,
		RootHash:  bytes.Repeat([]byte{0x5d}, 32),
	}

	raw, err := EncodeTreeHead(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeTreeHead(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TreeSize != want.TreeSize || got.Timestamp != want.Timestamp ||
		!bytes.Equal(got.RootHash, want.RootHash) {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}

	if _, err := DecodeTreeHead(raw[:len(raw)-3]); err == nil {
		t.Fatal("decoded a truncated tree head without error")
	}
}

func TestHex(t *testing.T) {
	digest := []byte{0xde, 0xad, 0xbe, 0xef}
	if got := ToHex(digest); got != "deadbeef" {
		t.Fatalf("ToHex = %q", got)
	}

	back, err := FromHex("deadbeef")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if !bytes.Equal(back, digest) {
		t.Fatalf("FromHex = %x", back)
	}

	if _, err := FromHex("not-hex"); err == nil {
		t.Fatal("FromHex accepted invalid input")
	}
}
