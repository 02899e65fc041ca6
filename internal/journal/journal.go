package journal

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"sessionlog-sync-server/internal/audit"
	"sessionlog-sync-server/internal/domain"
	"sessionlog-sync-server/internal/policy"
	"sessionlog-sync-server/internal/repository"
)

// changeBuffer is the per-subscriber buffer on the change stream. A
// subscriber that falls further behind than this loses entries.
const changeBuffer = 256

// JournalError wraps a persistence-substrate failure with the journal
// operation it occurred in.
type JournalError struct {
	Op  string
	Err error
}

func (e *JournalError) Error() string {
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// DomainEffect is the caller-supplied unit of work a local write represents.
// It runs outside the journal lock; if it fails the write commits nothing.
type DomainEffect func(entry *domain.Entry) error

// RemoteEffect is the materialization hook invoked for each entry accepted
// during a remote merge, together with the conflicts it was resolved against.
// It runs inside the merge's atomic step and cannot fail the merge.
type RemoteEffect func(entry *domain.Entry, conflicts []*domain.Entry)

type remoteCursor struct {
	Sequence uint64
	Missing  []*domain.Entry
}

// Change is one committed entry on the change stream, tagged with the remote
// it was merged from. Origin is empty for local writes, so transports can
// avoid echoing entries back to the peer that sent them.
type Change struct {
	Entry  *domain.Entry
	Origin string
}

// Journal is a single-writer, append-only event journal with remote merge,
// per-remote replication cursors, and full-snapshot persistence. One mutex
// serializes every top-level operation; the ordered store, id index, conflict
// index and cursor table are never mutated outside it.
type Journal struct {
	mu     sync.Mutex
	store  repository.BlobStore
	key    string
	policy policy.ConflictPolicy
	sink   audit.Sink

	entries   []*domain.Entry
	byID      map[string]*domain.Entry
	conflicts map[domain.ConflictKey][]*domain.Entry
	remotes   map[string]*remoteCursor

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// New rehydrates a journal from whatever snapshot the store holds under key.
// A nil policy falls back to last-write-wins; a nil sink discards audit
// events.
func New(store repository.BlobStore, key string, pol policy.ConflictPolicy, sink audit.Sink) (*Journal, error) {
	if pol == nil {
		pol = policy.Default()
	}
	if sink == nil {
		sink = audit.NopSink{}
	}

	j := &Journal{
		store:     store,
		key:       key,
		policy:    pol,
		sink:      sink,
		byID:      make(map[string]*domain.Entry),
		conflicts: make(map[domain.ConflictKey][]*domain.Entry),
		remotes:   make(map[string]*remoteCursor),
		subs:      make(map[int]chan Change),
	}

	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

type snapshot struct {
	Entries []*domain.Entry           `json:"entries"`
	Remotes map[string]cursorSnapshot `json:"remotes,omitempty"`
}

type cursorSnapshot struct {
	Sequence uint64   `json:"sequence"`
	Missing  []string `json:"missing,omitempty"`
}

func (j *Journal) load() error {
	data, err := j.store.Get(j.key)
	if err != nil {
		return &JournalError{Op: "entries", Err: err}
	}
	if data == nil {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return &JournalError{Op: "entries", Err: err}
	}

	for _, e := range snap.Entries {
		if e == nil {
			continue
		}
		if _, dup := j.byID[e.IDString()]; dup {
			continue
		}
		j.entries = append(j.entries, e)
		j.byID[e.IDString()] = e
		k := e.ConflictKey()
		j.conflicts[k] = append(j.conflicts[k], e)
	}

	for remoteID, cs := range snap.Remotes {
		cur := &remoteCursor{Sequence: cs.Sequence}
		for _, id := range cs.Missing {
			if e, ok := j.byID[id]; ok {
				cur.Missing = append(cur.Missing, e)
			}
		}
		j.remotes[remoteID] = cur
	}

	j.sortLocked()
	return nil
}

func (j *Journal) persistLocked() error {
	snap := snapshot{
		Entries: j.entries,
		Remotes: make(map[string]cursorSnapshot, len(j.remotes)),
	}
	for remoteID, cur := range j.remotes {
		cs := cursorSnapshot{Sequence: cur.Sequence}
		for _, e := range cur.Missing {
			cs.Missing = append(cs.Missing, e.IDString())
		}
		snap.Remotes[remoteID] = cs
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return &JournalError{Op: "persist", Err: err}
	}
	if err := j.store.Set(j.key, data); err != nil {
		return &JournalError{Op: "persist", Err: err}
	}
	return nil
}

// Write runs the local write path: allocate an entry, run the caller's domain
// effect outside the lock, and on success commit, persist and publish. A
// failed effect leaves the journal untouched. A failed snapshot write is
// logged and suppressed; the entry stays committed in memory and durability
// catches up on the next successful persist.
func (j *Journal) Write(event, primaryKey string, payload []byte, effect DomainEffect) (*domain.Entry, error) {
	entry, err := domain.NewEntry(event, primaryKey, payload)
	if err != nil {
		return nil, err
	}

	if effect != nil {
		if err := effect(entry); err != nil {
			return nil, err
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, known := j.byID[entry.IDString()]; known {
		return entry, nil
	}

	j.commitLocked(entry, "")
	j.sortLocked()

	if err := j.persistLocked(); err != nil {
		log.Printf("journal: snapshot write after local commit failed: %v", err)
	}

	j.publish(entry, "")
	return entry, nil
}

// WriteFromRemote merges a batch of peer entries as one atomic step. Already
// known entries only advance the remote's sequence. The rest is optionally
// compacted into brackets, resolved entry by entry against the conflict
// index, and committed; the full snapshot is persisted exactly once for the
// call, and unlike the local path a persistence failure here is returned.
func (j *Journal) WriteFromRemote(remoteID string, batch []domain.RemoteEntry, compactor Compactor, effect RemoteEffect) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cur := j.cursorLocked(remoteID)

	uncommitted := make([]domain.RemoteEntry, 0, len(batch))
	for _, re := range batch {
		if re.Entry == nil {
			continue
		}
		if _, known := j.byID[re.Entry.IDString()]; known {
			if re.RemoteSequence > cur.Sequence {
				cur.Sequence = re.RemoteSequence
			}
			continue
		}
		uncommitted = append(uncommitted, re)
	}

	var brackets []Bracket
	if compactor != nil {
		brackets = compactor.Compact(uncommitted)
	} else {
		brackets = []Bracket{{Compacted: uncommitted, Originals: batch}}
	}

	inserted := false
	var committed []*domain.Entry

	for _, b := range brackets {
		if len(b.Originals) > len(b.Compacted) {
			j.sink.Compaction(domain.CompactionAudit{
				RemoteID: remoteID,
				Before:   len(b.Originals),
				After:    len(b.Compacted),
				Events:   distinctEvents(b.Originals),
			})
		}

		for _, re := range b.Compacted {
			entry := re.Entry
			if entry == nil {
				continue
			}

			key := entry.ConflictKey()
			conflicts := append([]*domain.Entry(nil), j.conflicts[key]...)

			var res domain.Resolution
			if len(conflicts) == 0 {
				res = domain.Accept(entry)
			} else {
				res = j.policy.Resolve(entry, conflicts)
				a := domain.ConflictAudit{
					RemoteID:      remoteID,
					Event:         entry.Event,
					PrimaryKey:    entry.PrimaryKey,
					EntryID:       entry.IDString(),
					ConflictCount: len(conflicts),
					Resolution:    res.Kind,
				}
				if res.Entry != nil {
					a.ResolvedEntryID = res.Entry.IDString()
				}
				j.sink.Conflict(a)
			}

			if res.Kind == domain.ResolutionReject || res.Entry == nil {
				continue
			}

			resolved := res.Entry
			if _, known := j.byID[resolved.IDString()]; known {
				continue
			}

			if effect != nil {
				effect(resolved, conflicts)
			}

			// The winner replaces the set it was resolved against, so both
			// delivery orders converge to a single entry per conflict key.
			for _, c := range conflicts {
				j.removeLocked(c)
			}
			j.commitLocked(resolved, remoteID)
			committed = append(committed, resolved)
			inserted = true
		}

		for _, re := range b.Originals {
			if re.RemoteSequence > cur.Sequence {
				cur.Sequence = re.RemoteSequence
			}
		}
	}

	if inserted {
		j.sortLocked()
	}

	if err := j.persistLocked(); err != nil {
		return err
	}

	for _, e := range committed {
		// Skip anything a later candidate in the same call replaced.
		if _, ok := j.byID[e.IDString()]; ok {
			j.publish(e, remoteID)
		}
	}
	return nil
}

// WithRemoteUncommitted snapshots the remote's missing list under the lock
// and hands it to f outside the lock. When f succeeds and reports the items
// it consumed, the missing list is trimmed up to and including the last
// consumed entry and the consumed items are returned to the caller; entries
// committed after the snapshot stay pending. When f fails the cursor is
// untouched and the error is returned as-is so the caller may retry.
func (j *Journal) WithRemoteUncommitted(remoteID string, f func(missing []*domain.Entry) ([]*domain.Entry, error)) ([]*domain.Entry, error) {
	j.mu.Lock()
	cur := j.cursorLocked(remoteID)
	snap := append([]*domain.Entry(nil), cur.Missing...)
	j.mu.Unlock()

	consumed, err := f(snap)
	if err != nil {
		return nil, err
	}
	if len(consumed) == 0 {
		return consumed, nil
	}

	lastID := consumed[len(consumed)-1].IDString()

	j.mu.Lock()
	defer j.mu.Unlock()

	cur = j.cursorLocked(remoteID)
	for i := len(cur.Missing) - 1; i >= 0; i-- {
		if cur.Missing[i].IDString() == lastID {
			cur.Missing = append([]*domain.Entry(nil), cur.Missing[i+1:]...)
			break
		}
	}
	return consumed, nil
}

// NextRemoteSequence reports the highest remote sequence ever observed from
// the remote, or 0 for a remote the journal has never heard from. Remotes use
// it on (re)connect to find their replication position.
func (j *Journal) NextRemoteSequence(remoteID string) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	cur, ok := j.remotes[remoteID]
	if !ok {
		return 0
	}
	return cur.Sequence
}

// Entries returns a point-in-time copy of the ordered store.
func (j *Journal) Entries() []*domain.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]*domain.Entry(nil), j.entries...)
}

// Changes subscribes to entries as they commit, regardless of origin. The
// subscriber only sees entries committed after the subscription. The returned
// cancel func releases the subscription and closes the channel.
func (j *Journal) Changes() (<-chan Change, func()) {
	j.subMu.Lock()
	id := j.nextSub
	j.nextSub++
	ch := make(chan Change, changeBuffer)
	j.subs[id] = ch
	j.subMu.Unlock()

	cancel := func() {
		j.subMu.Lock()
		defer j.subMu.Unlock()
		if c, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Destroy removes the persisted snapshot and clears all in-memory state.
func (j *Journal) Destroy() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Remove(j.key); err != nil {
		return &JournalError{Op: "destroy", Err: err}
	}

	j.entries = nil
	j.byID = make(map[string]*domain.Entry)
	j.conflicts = make(map[domain.ConflictKey][]*domain.Entry)
	j.remotes = make(map[string]*remoteCursor)
	return nil
}

// cursorLocked resolves the remote's cursor, creating it on first contact
// seeded with every currently known entry as missing.
func (j *Journal) cursorLocked(remoteID string) *remoteCursor {
	cur, ok := j.remotes[remoteID]
	if !ok {
		cur = &remoteCursor{
			Missing: append([]*domain.Entry(nil), j.entries...),
		}
		j.remotes[remoteID] = cur
	}
	return cur
}

// commitLocked adds the entry to the ordered store, id index, conflict index
// and every other remote's missing list. origin is "" for local writes.
func (j *Journal) commitLocked(entry *domain.Entry, origin string) {
	j.entries = append(j.entries, entry)
	j.byID[entry.IDString()] = entry

	k := entry.ConflictKey()
	j.conflicts[k] = append(j.conflicts[k], entry)

	for remoteID, cur := range j.remotes {
		if remoteID == origin {
			continue
		}
		cur.Missing = append(cur.Missing, entry)
	}
}

// removeLocked drops a replaced entry from every structure it appears in.
func (j *Journal) removeLocked(entry *domain.Entry) {
	id := entry.IDString()
	if _, ok := j.byID[id]; !ok {
		return
	}
	delete(j.byID, id)

	j.entries = withoutEntry(j.entries, id)

	k := entry.ConflictKey()
	j.conflicts[k] = withoutEntry(j.conflicts[k], id)
	if len(j.conflicts[k]) == 0 {
		delete(j.conflicts, k)
	}

	for _, cur := range j.remotes {
		cur.Missing = withoutEntry(cur.Missing, id)
	}
}

func (j *Journal) sortLocked() {
	sort.SliceStable(j.entries, func(a, b int) bool {
		return j.entries[a].CreatedAtMillis() < j.entries[b].CreatedAtMillis()
	})
}

func (j *Journal) publish(entry *domain.Entry, origin string) {
	j.subMu.Lock()
	defer j.subMu.Unlock()

	for id, ch := range j.subs {
		select {
		case ch <- Change{Entry: entry, Origin: origin}:
		default:
			log.Printf("journal: change subscriber %d lagging, dropping entry %s", id, entry.IDString())
		}
	}
}

func withoutEntry(list []*domain.Entry, id string) []*domain.Entry {
	for i, e := range list {
		if e.IDString() == id {
			out := make([]*domain.Entry, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}
