package domain

import (
	"testing"
	"time"
)

func TestNewEntryIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		e, err := NewEntry("note", "doc-1", nil)
		if err != nil {
			t.Fatalf("NewEntry() error = %v", err)
		}
		if seen[e.IDString()] {
			t.Fatalf("duplicate id %s", e.IDString())
		}
		seen[e.IDString()] = true
	}
}

func TestCreatedAtMillisRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1000, 1735689600000} {
		e := NewEntryAt(time.UnixMilli(ms), "note", "doc-1", nil)
		if got := e.CreatedAtMillis(); got != ms {
			t.Errorf("CreatedAtMillis() = %d, want %d", got, ms)
		}
	}
}

func TestNewEntryEmbedsCurrentTime(t *testing.T) {
	before := time.Now().UnixMilli()
	e, err := NewEntry("note", "doc-1", nil)
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	after := time.Now().UnixMilli()

	got := e.CreatedAtMillis()
	if got < before || got > after {
		t.Errorf("CreatedAtMillis() = %d, want within [%d, %d]", got, before, after)
	}
}

func TestEntryIDsSortByCreationTime(t *testing.T) {
	older := NewEntryAt(time.UnixMilli(1000), "note", "doc-1", nil)
	newer := NewEntryAt(time.UnixMilli(2000), "note", "doc-1", nil)

	if older.IDString() >= newer.IDString() {
		t.Errorf("id ordering must follow creation time: %s >= %s", older.IDString(), newer.IDString())
	}
}

func TestConflictKey(t *testing.T) {
	a := NewEntryAt(time.UnixMilli(1000), "note", "doc-1", nil)
	b := NewEntryAt(time.UnixMilli(2000), "note", "doc-1", nil)
	if a.ConflictKey() != b.ConflictKey() {
		t.Error("same event and primary key must share a conflict key")
	}

	c := NewEntryAt(time.UnixMilli(1000), "tag", "doc-1", nil)
	if a.ConflictKey() == c.ConflictKey() {
		t.Error("different events must not share a conflict key")
	}

	d := NewEntryAt(time.UnixMilli(1000), "note", "doc-2", nil)
	if a.ConflictKey() == d.ConflictKey() {
		t.Error("different primary keys must not share a conflict key")
	}
}

func TestConflictKeyUnambiguous(t *testing.T) {
	// "no" + "te-doc-1" must not collide with "note" + "doc-1" even though
	// naive concatenation would.
	a := NewEntryAt(time.UnixMilli(1000), "note", "doc-1", nil)
	b := NewEntryAt(time.UnixMilli(1000), "no", "tedoc-1", nil)
	if a.ConflictKey() == b.ConflictKey() {
		t.Error("conflict key must keep event and primary key separate")
	}
}
