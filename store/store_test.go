// Copyright (C) 2024 Jacques Dafflon | 0xjac - All Rights Reserved

package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func storageFixture(t *testing.T) DB {
	t.Helper()

	db, err := NewLevelDB(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close leveldb: %v", err)
		}
	})
	return db
}

func TestKeys(t *testing.T) {
	entry := EntryKey(7)
	head := TreeHeadKey(7)

	if len(entry) != 9 || len(head) != 9 {
		t.Fatalf("key lengths = %d, %d, want 9", len(entry), len(head))
	}
	if bytes.Equal(entry, head) {
		t.Fatal("entry and tree head keys collide at the same index")
	}
	if bytes.Equal(EntryKey(7), EntryKey(8)) {
		t.Fatal("entry keys collide across indices")
	}

	// Big-endian index keys keep entries in positional order under
	// lexicographic iteration.
	if bytes.Compare(EntryKey(255), EntryKey(256)) >= 0 {
		t.Fatal("entry keys are not ordered by index")
	}
}

func TestBackends(t *testing.T) {
	for _, tc := range []struct {
		name string
		db   func(t *testing.T) DB
	}{
		{"leveldb", storageFixture},
		{"memory", func(t *testing.T) DB { return NewMemoryDB() }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.db(t)

			if _, err := db.Get(EntryKey(1)); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get of missing key err = %v, want ErrNotFound", err)
			}

			if err := db.Put(EntryKey(1), []byte("first")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			val, err := db.Get(EntryKey(1))
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(val, []byte("first")) {
				t.Fatalf("Get = %q", val)
			}

			// Overwrite.
			if err := db.Put(EntryKey(1), []byte("second")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			if val, _ := db.Get(EntryKey(1)); !bytes.Equal(val, []byte("second")) {
				t.Fatalf("Get after overwrite = %q", val)
			}

			if err := db.Delete(EntryKey(1)); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := db.Get(EntryKey(1)); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")

	db, err := NewLevelDB(path)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	if err := db.Put(TreeHeadKey(4), []byte("head")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = NewLevelDB(path)
	if err != nil {
		t.Fatalf("reopen leveldb: %v", err)
	}
	defer db.Close()

	val, err := db.Get(TreeHeadKey(4))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !bytes.Equal(val, []byte("head")) {
		t.Fatalf("Get after reopen = %q", val)
	}
}
