package audit

import (
	"log"
	"strings"

	"sessionlog-sync-server/internal/domain"
)

// Sink receives conflict-resolution and compaction notifications from the
// journal. Both methods are best-effort: the journal ignores anything a sink
// does with them.
type Sink interface {
	Conflict(a domain.ConflictAudit)
	Compaction(a domain.CompactionAudit)
}

// LogSink renders audit events to the process log.
type LogSink struct{}

func (LogSink) Conflict(a domain.ConflictAudit) {
	log.Printf("[audit] conflict remote=%s event=%s key=%s entry=%s conflicts=%d resolution=%s resolved=%s",
		a.RemoteID, a.Event, a.PrimaryKey, a.EntryID, a.ConflictCount, a.Resolution, a.ResolvedEntryID)
}

func (LogSink) Compaction(a domain.CompactionAudit) {
	log.Printf("[audit] compaction remote=%s before=%d after=%d events=%s",
		a.RemoteID, a.Before, a.After, strings.Join(a.Events, ","))
}

// NopSink discards all audit events.
type NopSink struct{}

func (NopSink) Conflict(domain.ConflictAudit)     {}
func (NopSink) Compaction(domain.CompactionAudit) {}
