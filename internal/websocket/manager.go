package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager tracks connected peer clients, indexed by remote identity, and
// routes their inbound frames to the configured MessageHandler.
type Manager struct {
	clients          map[string]*Client
	remoteIndex      map[string]map[string]bool
	clientsMutex     sync.RWMutex
	Register         chan *Client
	Unregister       chan *Client
	HandleMessage    chan *ClientMessage
	maxConnPerRemote int
	writeWait        time.Duration
	pongWait         time.Duration
	pingPeriod       time.Duration
	messageHandler   MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(maxConnPerRemote int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:          make(map[string]*Client),
		remoteIndex:      make(map[string]map[string]bool),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		HandleMessage:    make(chan *ClientMessage),
		maxConnPerRemote: maxConnPerRemote,
		writeWait:        writeWait,
		pongWait:         pongWait,
		pingPeriod:       pingPeriod,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.remoteIndex[client.RemoteID] == nil {
		m.remoteIndex[client.RemoteID] = make(map[string]bool)
	}

	if len(m.remoteIndex[client.RemoteID]) >= m.maxConnPerRemote {
		log.Printf("max connections reached for remote %s", client.RemoteID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.remoteIndex[client.RemoteID][client.ID] = true

	log.Printf("peer connected: %s (remote: %s)", client.ID, client.RemoteID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.remoteIndex[client.RemoteID], client.ID)

		if len(m.remoteIndex[client.RemoteID]) == 0 {
			delete(m.remoteIndex, client.RemoteID)
		}

		close(client.Send)
		log.Printf("peer disconnected: %s (remote: %s)", client.ID, client.RemoteID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("error unmarshaling message: %v", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			log.Printf("error handling %s message from %s: %v", msg.Type, clientMsg.Client.RemoteID, err)
		}
	}
}

// Broadcast sends a message to every connected peer, optionally skipping one
// remote (typically the origin of the entries being broadcast).
func (m *Manager) Broadcast(message *Message, excludeRemoteID string) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for clientID, client := range m.clients {
		if client.RemoteID == excludeRemoteID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("client %s send buffer full, closing connection", clientID)
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}

	return nil
}

// SendToClient queues a message on one connection.
func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Printf("client %s send buffer full", clientID)
	}

	return nil
}

// RemoteConnections reports how many live connections a remote holds.
func (m *Manager) RemoteConnections(remoteID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.remoteIndex[remoteID]; exists {
		return len(clients)
	}
	return 0
}
