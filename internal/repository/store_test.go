package repository

import (
	"testing"
)

func stores(t *testing.T) map[string]BlobStore {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set("journal", []byte(`{"entries":[]}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			data, err := store.Get("journal")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(data) != `{"entries":[]}` {
				t.Errorf("Get() = %q", data)
			}

			if err := store.Set("journal", []byte("v2")); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			data, err = store.Get("journal")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(data) != "v2" {
				t.Errorf("Get() after overwrite = %q, want v2", data)
			}
		})
	}
}

func TestStoreAbsentKey(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data, err := store.Get("never-written")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if data != nil {
				t.Errorf("absent key must yield nil data, got %q", data)
			}
		})
	}
}

func TestStoreRemove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set("journal", []byte("x")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Remove("journal"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}

			data, err := store.Get("journal")
			if err != nil {
				t.Fatalf("Get() after remove error = %v", err)
			}
			if data != nil {
				t.Errorf("removed key must be absent, got %q", data)
			}

			// Removing an absent key is not an error.
			if err := store.Remove("journal"); err != nil {
				t.Errorf("Remove() of absent key error = %v", err)
			}
		})
	}
}

func TestMemoryStoreDefensiveCopies(t *testing.T) {
	store := NewMemoryStore()

	in := []byte("original")
	if err := store.Set("journal", in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	in[0] = 'X'

	out, err := store.Get("journal")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(out) != "original" {
		t.Errorf("store must not alias caller buffers, got %q", out)
	}

	out[0] = 'Y'
	again, _ := store.Get("journal")
	if string(again) != "original" {
		t.Errorf("returned buffers must not alias stored data, got %q", again)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := fs.Set("a/b/c", []byte("nested")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, err := fs.Get("a/b/c")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "nested" {
		t.Errorf("Get() = %q, want nested", data)
	}
}
