package storage

import (
	"bytes"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if _, ok, err := db.Get([]byte("missing")); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, ok, err := db.Get([]byte("k"))
	if err != nil || !ok || !bytes.Equal(value, []byte("v")) {
		t.Fatalf("get: value=%q ok=%v err=%v", value, ok, err)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := db.Get([]byte("k")); ok {
		t.Fatal("key survived delete")
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	original := []byte("value")
	if err := db.Put([]byte("k"), original); err != nil {
		t.Fatalf("put: %v", err)
	}
	original[0] = 'X'

	stored, _, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(stored, []byte("value")) {
		t.Fatalf("stored value mutated: %q", stored)
	}
	stored[0] = 'Y'
	again, _, _ := db.Get([]byte("k"))
	if !bytes.Equal(again, []byte("value")) {
		t.Fatalf("returned slice aliased storage: %q", again)
	}
}

func TestMemDBWriteBatch(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if err := db.Put([]byte("stale"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := db.WriteBatch([]BatchEntry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("stale"), Delete: true},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if _, ok, _ := db.Get([]byte("a")); !ok {
		t.Fatal("a missing after batch")
	}
	if _, ok, _ := db.Get([]byte("stale")); ok {
		t.Fatal("stale survived batch delete")
	}
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, ok, err := db.Get([]byte("missing")); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	err = db.WriteBatch([]BatchEntry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	value, ok, err := db.Get([]byte("b"))
	if err != nil || !ok || !bytes.Equal(value, []byte("2")) {
		t.Fatalf("get: value=%q ok=%v err=%v", value, ok, err)
	}
}
