package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemDBWriteBatch(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("stale"), []byte("old")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	batch := new(Batch)
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("stale"))
	if batch.Len() != 3 {
		t.Fatalf("batch length = %d, want 3", batch.Len())
	}
	if err := db.Write(batch); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := db.Get([]byte("a"))
	if err != nil || !bytes.Equal(got, []byte("1")) {
		t.Fatalf("get a = %q, %v", got, err)
	}
	if _, err := db.Get([]byte("stale")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key: expected ErrNotFound, got %v", err)
	}
}

func TestBatchCopiesKeysAndValues(t *testing.T) {
	db := NewMemDB()
	key := []byte("k")
	value := []byte("v")
	batch := new(Batch)
	batch.Put(key, value)
	key[0] = 'x'
	value[0] = 'x'
	if err := db.Write(batch); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("get k = %q, %v (caller mutation leaked into batch)", got, err)
	}
}
