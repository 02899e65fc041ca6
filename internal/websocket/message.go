package websocket

import (
	"encoding/json"
	"time"

	"sessionlog-sync-server/internal/domain"
)

type MessageType string

const (
	// TypePush carries a batch of remote entries into the journal.
	TypePush MessageType = "push"
	// TypePushAck confirms how much of a push was processed.
	TypePushAck MessageType = "push_ack"
	// TypeResume asks for the peer's replication position.
	TypeResume MessageType = "resume"
	// TypeResumeOK answers a resume with the next remote sequence.
	TypeResumeOK MessageType = "resume_ok"
	// TypeEntries delivers committed entries to a peer, both as replay of
	// its missing list and as live commits.
	TypeEntries MessageType = "entries"
	// TypeAck acknowledges delivered entries up to a given id.
	TypeAck  MessageType = "ack"
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type PushPayload struct {
	Entries []domain.RemoteEntry `json:"entries"`
}

type PushAckPayload struct {
	Received int    `json:"received"`
	Error    string `json:"error,omitempty"`
}

type ResumeOKPayload struct {
	RemoteID     string `json:"remote_id"`
	NextSequence uint64 `json:"next_sequence"`
}

type EntriesPayload struct {
	Entries []*domain.Entry `json:"entries"`
	Replay  bool            `json:"replay,omitempty"`
}

type AckPayload struct {
	LastEntryID string `json:"last_entry_id"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
