package policy

import (
	"testing"
	"time"

	"sessionlog-sync-server/internal/domain"
)

func entryAt(ms int64, payload string) *domain.Entry {
	return domain.NewEntryAt(time.UnixMilli(ms), "note", "doc-1", []byte(payload))
}

func TestLastWriteWins(t *testing.T) {
	tests := []struct {
		name      string
		entry     *domain.Entry
		conflicts []*domain.Entry
		want      string
	}{
		{
			name:  "newer candidate wins",
			entry: entryAt(2000, "new"),
			conflicts: []*domain.Entry{
				entryAt(1000, "old"),
			},
			want: "new",
		},
		{
			name:  "newer conflict wins",
			entry: entryAt(1000, "old"),
			conflicts: []*domain.Entry{
				entryAt(2000, "new"),
			},
			want: "new",
		},
		{
			name:  "tie goes to later position",
			entry: entryAt(1000, "candidate"),
			conflicts: []*domain.Entry{
				entryAt(1000, "conflict"),
			},
			want: "conflict",
		},
		{
			name:      "no conflicts keeps candidate",
			entry:     entryAt(1000, "only"),
			conflicts: nil,
			want:      "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := LastWriteWins{}.Resolve(tt.entry, tt.conflicts)
			if res.Kind != domain.ResolutionAccept {
				t.Fatalf("Resolve() kind = %s, want accept", res.Kind)
			}
			if string(res.Entry.Payload) != tt.want {
				t.Errorf("Resolve() winner = %q, want %q", res.Entry.Payload, tt.want)
			}
		})
	}
}

func TestFirstWriteWins(t *testing.T) {
	res := FirstWriteWins{}.Resolve(entryAt(2000, "new"), []*domain.Entry{entryAt(1000, "old")})
	if res.Kind != domain.ResolutionAccept {
		t.Fatalf("Resolve() kind = %s, want accept", res.Kind)
	}
	if string(res.Entry.Payload) != "old" {
		t.Errorf("Resolve() winner = %q, want %q", res.Entry.Payload, "old")
	}

	// Tie: later position wins, same as LWW.
	res = FirstWriteWins{}.Resolve(entryAt(1000, "candidate"), []*domain.Entry{entryAt(1000, "conflict")})
	if string(res.Entry.Payload) != "conflict" {
		t.Errorf("tie winner = %q, want %q", res.Entry.Payload, "conflict")
	}
}

func TestRejectAll(t *testing.T) {
	res := RejectAll{Reason: "frozen"}.Resolve(entryAt(1000, "a"), []*domain.Entry{entryAt(2000, "b")})
	if res.Kind != domain.ResolutionReject {
		t.Fatalf("Resolve() kind = %s, want reject", res.Kind)
	}
	if res.Reason != "frozen" {
		t.Errorf("Resolve() reason = %q, want %q", res.Reason, "frozen")
	}
	if res.Entry != nil {
		t.Error("rejection must carry no entry")
	}
}

func TestMergeWith(t *testing.T) {
	pol := MergeWith(func(entry *domain.Entry, conflicts []*domain.Entry) *domain.Entry {
		combined := append([]byte{}, entry.Payload...)
		for _, c := range conflicts {
			combined = append(combined, c.Payload...)
		}
		return domain.NewEntryAt(time.UnixMilli(entry.CreatedAtMillis()), entry.Event, entry.PrimaryKey, combined)
	})

	res := pol.Resolve(entryAt(2000, "a"), []*domain.Entry{entryAt(1000, "b")})
	if res.Kind != domain.ResolutionMerge {
		t.Fatalf("Resolve() kind = %s, want merge", res.Kind)
	}
	if string(res.Entry.Payload) != "ab" {
		t.Errorf("merged payload = %q, want %q", res.Entry.Payload, "ab")
	}
}

func TestByName(t *testing.T) {
	if _, ok := ByName("fww").(FirstWriteWins); !ok {
		t.Error(`ByName("fww") must map to FirstWriteWins`)
	}
	if _, ok := ByName("reject").(RejectAll); !ok {
		t.Error(`ByName("reject") must map to RejectAll`)
	}
	if _, ok := ByName("lww").(LastWriteWins); !ok {
		t.Error(`ByName("lww") must map to LastWriteWins`)
	}
	if _, ok := ByName("").(LastWriteWins); !ok {
		t.Error("unknown names must fall back to LastWriteWins")
	}
}
