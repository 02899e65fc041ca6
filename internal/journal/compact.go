package journal

import (
	"sessionlog-sync-server/internal/domain"
)

// Bracket is a compaction-produced group: the reduced entries to merge and
// the original remote entries they stand in for. Cursor advancement uses the
// originals, so sequences are acknowledged even for entries compaction
// dropped.
type Bracket struct {
	Compacted []domain.RemoteEntry
	Originals []domain.RemoteEntry
}

// Compactor reduces a batch of uncommitted remote entries before merge, to
// bound log growth. Implementations must be pure and side-effect-free.
type Compactor interface {
	Compact(batch []domain.RemoteEntry) []Bracket
}

// LatestPerKey collapses each conflict-key group in the batch to its newest
// entry, producing one bracket per key in first-seen order. Ties on creation
// time go to the later arrival.
type LatestPerKey struct{}

func (LatestPerKey) Compact(batch []domain.RemoteEntry) []Bracket {
	var order []domain.ConflictKey
	groups := make(map[domain.ConflictKey][]domain.RemoteEntry)

	for _, re := range batch {
		if re.Entry == nil {
			continue
		}
		k := re.Entry.ConflictKey()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], re)
	}

	brackets := make([]Bracket, 0, len(order))
	for _, k := range order {
		group := groups[k]
		winner := group[0]
		for _, re := range group[1:] {
			if re.Entry.CreatedAtMillis() >= winner.Entry.CreatedAtMillis() {
				winner = re
			}
		}
		brackets = append(brackets, Bracket{
			Compacted: []domain.RemoteEntry{winner},
			Originals: group,
		})
	}
	return brackets
}

func distinctEvents(batch []domain.RemoteEntry) []string {
	seen := make(map[string]bool)
	var events []string
	for _, re := range batch {
		if re.Entry == nil || seen[re.Entry.Event] {
			continue
		}
		seen[re.Entry.Event] = true
		events = append(events, re.Entry.Event)
	}
	return events
}
