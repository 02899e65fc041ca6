package policy

import (
	"sessionlog-sync-server/internal/domain"
)

// ConflictPolicy decides what happens when a candidate entry collides with
// existing entries sharing its conflict key. Resolve is total: it must return
// a defined resolution for any input and may not fail. Policies are pure
// functions over their inputs; they get no access to journal locking or
// persistence.
type ConflictPolicy interface {
	Resolve(entry *domain.Entry, conflicts []*domain.Entry) domain.Resolution
}

// LastWriteWins accepts whichever entry among the candidate and its conflicts
// carries the greatest creation time. Ties go to the later position in the
// comparison order (candidate first, then conflicts in index order).
type LastWriteWins struct{}

func (LastWriteWins) Resolve(entry *domain.Entry, conflicts []*domain.Entry) domain.Resolution {
	winner := entry
	for _, c := range conflicts {
		if c.CreatedAtMillis() >= winner.CreatedAtMillis() {
			winner = c
		}
	}
	return domain.Accept(winner)
}

// FirstWriteWins is the symmetric policy: the entry with the smallest creation
// time wins, ties again going to the later position.
type FirstWriteWins struct{}

func (FirstWriteWins) Resolve(entry *domain.Entry, conflicts []*domain.Entry) domain.Resolution {
	winner := entry
	for _, c := range conflicts {
		if c.CreatedAtMillis() <= winner.CreatedAtMillis() {
			winner = c
		}
	}
	return domain.Accept(winner)
}

// RejectAll refuses every conflicting candidate with a fixed reason.
type RejectAll struct {
	Reason string
}

func (p RejectAll) Resolve(entry *domain.Entry, conflicts []*domain.Entry) domain.Resolution {
	return domain.Reject(p.Reason)
}

// MergeFunc combines a candidate with its conflicts into a single entry. The
// function must be pure.
type MergeFunc func(entry *domain.Entry, conflicts []*domain.Entry) *domain.Entry

// MergeWith wraps a MergeFunc as a ConflictPolicy producing Merge resolutions.
func MergeWith(fn MergeFunc) ConflictPolicy {
	return mergePolicy{fn: fn}
}

type mergePolicy struct {
	fn MergeFunc
}

func (p mergePolicy) Resolve(entry *domain.Entry, conflicts []*domain.Entry) domain.Resolution {
	return domain.Merge(p.fn(entry, conflicts))
}

// Default is the policy applied when none is configured.
func Default() ConflictPolicy {
	return LastWriteWins{}
}

// ByName maps a configured policy name to a reference policy. Unknown names
// fall back to the default.
func ByName(name string) ConflictPolicy {
	switch name {
	case "fww", "first-write-wins":
		return FirstWriteWins{}
	case "reject":
		return RejectAll{Reason: "concurrent write rejected"}
	default:
		return LastWriteWins{}
	}
}
