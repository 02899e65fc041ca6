package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// conflictKeySeparator joins event and primary key into a ConflictKey. The
// unit separator cannot appear in either part coming from JSON string fields,
// so the mapping is unambiguous.
const conflictKeySeparator = "\x1f"

// ConflictKey groups entries that are concurrent-candidate versions of the
// same logical record.
type ConflictKey string

// Entry is the unit of replication: a uniquely identified, timestamped event
// record. The id is a UUIDv7, so the creation instant is embedded in the id
// itself and entries sort by creation time without a separate clock field.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Event      string    `json:"event"`
	PrimaryKey string    `json:"primary_key"`
	Payload    []byte    `json:"payload,omitempty"`
}

// NewEntry allocates an entry with a fresh time-ordered id.
func NewEntry(event, primaryKey string, payload []byte) (*Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate entry id: %w", err)
	}

	return &Entry{
		ID:         id,
		Event:      event,
		PrimaryKey: primaryKey,
		Payload:    payload,
	}, nil
}

// NewEntryAt is like NewEntry but stamps the id with the given creation
// instant instead of the current time.
func NewEntryAt(createdAt time.Time, event, primaryKey string, payload []byte) *Entry {
	ms := createdAt.UnixMilli()

	id := uuid.New()
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	id[6] = (id[6] & 0x0f) | 0x70

	return &Entry{
		ID:         id,
		Event:      event,
		PrimaryKey: primaryKey,
		Payload:    payload,
	}
}

// IDString is the canonical string form of the id, used as the journal-wide
// deduplication key.
func (e *Entry) IDString() string {
	return e.ID.String()
}

// CreatedAtMillis extracts the creation instant embedded in the entry id.
func (e *Entry) CreatedAtMillis() int64 {
	sec, nsec := e.ID.Time().UnixTime()
	return sec*1000 + nsec/int64(time.Millisecond)
}

// ConflictKey returns the grouping key for conflict detection.
func (e *Entry) ConflictKey() ConflictKey {
	return ConflictKey(e.Event + conflictKeySeparator + e.PrimaryKey)
}

// RemoteEntry is an entry as shipped by a peer, tagged with the monotonic
// sequence number the peer assigned to its outgoing stream. The sequence
// orders the peer's stream and is independent of entry creation time.
type RemoteEntry struct {
	RemoteSequence uint64 `json:"remote_sequence"`
	Entry          *Entry `json:"entry"`
}
