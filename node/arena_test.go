package node

import (
	"bytes"
	"testing"
)

func TestArenaLevels(t *testing.T) {
	a := NewArena()
	if got := a.Levels(); got != 0 {
		t.Fatalf("new arena has %d levels", got)
	}

	a.AddLevel()
	if got := a.Levels(); got != 1 {
		t.Fatalf("Levels = %d, want 1", got)
	}
	if got := a.Width(0); got != 0 {
		t.Fatalf("new level has width %d", got)
	}

	a.Append(0, Combine([]byte("a")))
	a.Append(0, Combine([]byte("b")))
	if got := a.Width(0); got != 2 {
		t.Fatalf("Width = %d, want 2", got)
	}
	if got := a.Digest(0, 1); !bytes.Equal(got, []byte("b")) {
		t.Fatalf("Digest(0, 1) = %q", got)
	}
	if got := a.At(0, 0); got.Kind != Combined || !bytes.Equal(got.Digest, []byte("a")) {
		t.Fatalf("At(0, 0) = %+v", got)
	}
}

func TestArenaPopLast(t *testing.T) {
	a := NewArena()
	a.AddLevel()
	a.AddLevel()
	a.Append(1, Combine([]byte("ab")))
	a.Append(1, Carry([]byte("c")))

	popped := a.PopLast(1)
	if popped.Kind != Carried || !bytes.Equal(popped.Digest, []byte("c")) {
		t.Fatalf("PopLast = %+v", popped)
	}
	if got := a.Width(1); got != 1 {
		t.Fatalf("width after pop = %d, want 1", got)
	}
	if got := a.Last(1); got.Kind != Combined {
		t.Fatalf("Last after pop = %+v", got)
	}

	// The popped slot is reused by the replacing combination.
	a.Append(1, Combine([]byte("cd")))
	if got := a.Last(1); got.Kind != Combined || !bytes.Equal(got.Digest, []byte("cd")) {
		t.Fatalf("Last after replace = %+v", got)
	}
}

func TestArenaTop(t *testing.T) {
	a := NewArena()
	a.AddLevel()
	a.Append(0, Combine([]byte("leaf-1")))
	// With nothing but unfolded leaves, the first leaf is the top.
	a.Append(0, Combine([]byte("leaf-2")))
	if got := a.Top(); !bytes.Equal(got, []byte("leaf-1")) {
		t.Fatalf("Top = %q, want leaf-1", got)
	}

	a.AddLevel()
	a.Append(1, Combine([]byte("root")))
	if got := a.Top(); !bytes.Equal(got, []byte("root")) {
		t.Fatalf("Top = %q, want root", got)
	}
}
