package service

import (
	"fmt"
	"log"

	"sessionlog-sync-server/internal/domain"
	"sessionlog-sync-server/internal/journal"
	"sessionlog-sync-server/internal/websocket"
)

// ReplicationService bridges the websocket transport and the journal: pushed
// batches go into the merge path, resumes answer with the peer's replication
// position followed by a replay of its missing list, and acks trim the
// cursor. It also fans the journal's change stream out to connected peers.
type ReplicationService struct {
	journal   *journal.Journal
	wsManager *websocket.Manager
	compactor journal.Compactor
	changes   <-chan journal.Change
	cancel    func()
}

func NewReplicationService(j *journal.Journal, wsManager *websocket.Manager, compactor journal.Compactor) *ReplicationService {
	changes, cancel := j.Changes()
	return &ReplicationService{
		journal:   j,
		wsManager: wsManager,
		compactor: compactor,
		changes:   changes,
		cancel:    cancel,
	}
}

// Run pumps the journal's change stream to connected peers until Close. The
// subscription is taken at construction, so commits between construction and
// Run are broadcast too. The journal's replay path covers anyone offline.
func (s *ReplicationService) Run() {
	for change := range s.changes {
		msg, err := websocket.NewMessage(websocket.TypeEntries, &websocket.EntriesPayload{
			Entries: []*domain.Entry{change.Entry},
		})
		if err != nil {
			log.Printf("replication: failed to encode change broadcast: %v", err)
			continue
		}
		// The originating remote already holds the entry; everyone else
		// gets it live.
		if err := s.wsManager.Broadcast(msg, change.Origin); err != nil {
			log.Printf("replication: change broadcast failed: %v", err)
		}
	}
}

// Close releases the change subscription, stopping Run.
func (s *ReplicationService) Close() {
	s.cancel()
}

func (s *ReplicationService) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePush:
		return s.handlePush(client, msg)

	case websocket.TypeResume:
		return s.handleResume(client)

	case websocket.TypeAck:
		return s.handleAck(client, msg)

	case websocket.TypePing:
		return s.handlePing(client)

	default:
		log.Printf("unknown message type from %s: %s", client.RemoteID, msg.Type)
	}

	return nil
}

func (s *ReplicationService) handlePush(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.PushPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	ack := websocket.PushAckPayload{Received: len(payload.Entries)}
	if err := s.journal.WriteFromRemote(client.RemoteID, payload.Entries, s.compactor, s.applyEntry); err != nil {
		ack.Error = err.Error()
	}

	ackMsg, err := websocket.NewMessage(websocket.TypePushAck, &ack)
	if err != nil {
		return err
	}
	return s.wsManager.SendToClient(client.ID, ackMsg)
}

func (s *ReplicationService) handleResume(client *websocket.Client) error {
	seq := s.journal.NextRemoteSequence(client.RemoteID)

	okMsg, err := websocket.NewMessage(websocket.TypeResumeOK, &websocket.ResumeOKPayload{
		RemoteID:     client.RemoteID,
		NextSequence: seq,
	})
	if err != nil {
		return err
	}
	if err := s.wsManager.SendToClient(client.ID, okMsg); err != nil {
		return err
	}

	return s.ReplayMissing(client)
}

// ReplayMissing pushes the remote's outstanding entries down one connection.
// The cursor is trimmed once the replay frame is queued; a send failure
// leaves it untouched so a reconnect replays the same entries again.
func (s *ReplicationService) ReplayMissing(client *websocket.Client) error {
	_, err := s.journal.WithRemoteUncommitted(client.RemoteID, func(missing []*domain.Entry) ([]*domain.Entry, error) {
		if len(missing) == 0 {
			return nil, nil
		}

		replayMsg, err := websocket.NewMessage(websocket.TypeEntries, &websocket.EntriesPayload{
			Entries: missing,
			Replay:  true,
		})
		if err != nil {
			return nil, err
		}
		if err := s.wsManager.SendToClient(client.ID, replayMsg); err != nil {
			return nil, err
		}
		return missing, nil
	})
	return err
}

func (s *ReplicationService) handleAck(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.AckPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}
	if payload.LastEntryID == "" {
		return fmt.Errorf("ack missing last_entry_id")
	}

	_, err := s.journal.WithRemoteUncommitted(client.RemoteID, func(missing []*domain.Entry) ([]*domain.Entry, error) {
		for i, e := range missing {
			if e.IDString() == payload.LastEntryID {
				return missing[:i+1], nil
			}
		}
		// Unknown id: nothing consumed, cursor stays put.
		return nil, nil
	})
	return err
}

func (s *ReplicationService) handlePing(client *websocket.Client) error {
	pongMsg, err := websocket.NewMessage(websocket.TypePong, nil)
	if err != nil {
		return err
	}
	return s.wsManager.SendToClient(client.ID, pongMsg)
}

// applyEntry is the materialization hook handed to the merge path.
func (s *ReplicationService) applyEntry(entry *domain.Entry, conflicts []*domain.Entry) {
	if len(conflicts) > 0 {
		log.Printf("replication: %s/%s resolved against %d conflicting entries", entry.Event, entry.PrimaryKey, len(conflicts))
	}
}

// Pending returns a copy of the remote's missing list without trimming it.
func (s *ReplicationService) Pending(remoteID string) ([]*domain.Entry, error) {
	var pending []*domain.Entry
	_, err := s.journal.WithRemoteUncommitted(remoteID, func(missing []*domain.Entry) ([]*domain.Entry, error) {
		pending = missing
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}
