package domain

// ConflictAudit describes one conflict-resolution decision made during a
// remote merge.
type ConflictAudit struct {
	RemoteID        string         `json:"remote_id"`
	Event           string         `json:"event"`
	PrimaryKey      string         `json:"primary_key"`
	EntryID         string         `json:"entry_id"`
	ConflictCount   int            `json:"conflict_count"`
	Resolution      ResolutionKind `json:"resolution"`
	ResolvedEntryID string         `json:"resolved_entry_id,omitempty"`
}

// CompactionAudit describes one bracket whose remote history was reduced
// before merging.
type CompactionAudit struct {
	RemoteID string   `json:"remote_id"`
	Before   int      `json:"before"`
	After    int      `json:"after"`
	Events   []string `json:"events"`
}
