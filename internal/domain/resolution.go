package domain

type ResolutionKind string

const (
	ResolutionAccept ResolutionKind = "accept"
	ResolutionReject ResolutionKind = "reject"
	ResolutionMerge  ResolutionKind = "merge"
)

// Resolution is the decision a conflict policy makes for a candidate entry.
// Accept and Merge both carry the entry that wins; only the kind differs, for
// audit purposes. Reject carries an optional reason and persists nothing.
type Resolution struct {
	Kind   ResolutionKind
	Entry  *Entry
	Reason string
}

func Accept(entry *Entry) Resolution {
	return Resolution{Kind: ResolutionAccept, Entry: entry}
}

func Reject(reason string) Resolution {
	return Resolution{Kind: ResolutionReject, Reason: reason}
}

func Merge(entry *Entry) Resolution {
	return Resolution{Kind: ResolutionMerge, Entry: entry}
}
