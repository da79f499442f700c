package service

import (
	"encoding/json"
	"log"
	"sync"

	"messly-backend/internal/model"
	"messly-backend/internal/observability"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const sendBufferSize = 256

// Client is one live websocket connection, bound to a single (chat, user)
// pair for its whole lifetime. Writes go through the buffered Send channel;
// a dedicated writer goroutine owns the actual network writes.
type Client struct {
	ID       string
	Conn     *websocket.Conn
	UserID   int64
	Username string
	Send     chan []byte
}

func NewClient(conn *websocket.Conn, user *model.User) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		UserID:   user.ID,
		Username: user.Username,
		Send:     make(chan []byte, sendBufferSize),
	}
}

// room owns the live state of one chat: the connection set and how many
// connections each present user holds. Each room has its own lock so traffic
// in one chat never contends with another.
type room struct {
	mu     sync.Mutex
	closed bool
	conns  map[*Client]struct{}
	users  map[int64]int
}

func newRoom() *room {
	return &room{
		conns: make(map[*Client]struct{}),
		users: make(map[int64]int),
	}
}

// Registry tracks every live room in the process. A room is created on the
// first Join for its chat id and discarded entirely when its last connection
// leaves. The registry is owned by main and handed to the transport layer;
// nothing here is persisted.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[int64]*room)}
}

// Join registers the connection under the chat and marks its user present.
// Presence is a set: a second connection for the same user does not change
// the present-user set, only the connection count backing it.
func (r *Registry) Join(chatID int64, client *Client) {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[chatID]
		if !ok {
			rm = newRoom()
			r.rooms[chatID] = rm
			observability.RoomsGauge.Inc()
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the room's teardown; retry against a fresh room.
			rm.mu.Unlock()
			continue
		}
		rm.conns[client] = struct{}{}
		rm.users[client.UserID]++
		total := len(rm.conns)
		rm.mu.Unlock()

		observability.ConnectionsGauge.Inc()
		log.Printf("[WS] %s joined chat %d conn=%s (connections: %d)", client.Username, chatID, client.ID, total)
		return
	}
}

// Leave removes the connection. The user leaves the present set only when no
// other connection of theirs remains, and the room itself is dropped when its
// connection set becomes empty. Closing the Send channel here stops the
// connection's writer goroutine; the connection is already out of the map, so
// no broadcast can reach the closed channel.
func (r *Registry) Leave(chatID int64, client *Client) {
	r.mu.RLock()
	rm, ok := r.rooms[chatID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	if _, registered := rm.conns[client]; !registered {
		rm.mu.Unlock()
		return
	}
	delete(rm.conns, client)
	if rm.users[client.UserID]--; rm.users[client.UserID] <= 0 {
		delete(rm.users, client.UserID)
	}
	if len(rm.conns) == 0 {
		rm.closed = true
	}
	closed := rm.closed
	total := len(rm.conns)
	rm.mu.Unlock()

	close(client.Send)
	observability.ConnectionsGauge.Dec()
	log.Printf("[WS] %s left chat %d conn=%s (connections: %d)", client.Username, chatID, client.ID, total)

	if closed {
		r.mu.Lock()
		if r.rooms[chatID] == rm {
			delete(r.rooms, chatID)
			observability.RoomsGauge.Dec()
		}
		r.mu.Unlock()
	}
}

// PresentUsers returns a snapshot of the users with at least one live
// connection in the chat. Unknown chats yield an empty set.
func (r *Registry) PresentUsers(chatID int64) map[int64]struct{} {
	present := make(map[int64]struct{})
	r.mu.RLock()
	rm, ok := r.rooms[chatID]
	r.mu.RUnlock()
	if !ok {
		return present
	}

	rm.mu.Lock()
	for userID := range rm.users {
		present[userID] = struct{}{}
	}
	rm.mu.Unlock()
	return present
}

// Broadcast fans the envelope out to every connection currently in the chat.
// Sends are non-blocking: a full buffer drops the frame for that connection
// only and never stalls the room. Dead peers are the transport layer's
// problem; removal happens only through Leave.
func (r *Registry) Broadcast(chatID int64, payload model.Envelope) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] marshal broadcast for chat %d: %v", chatID, err)
		return
	}

	r.mu.RLock()
	rm, ok := r.rooms[chatID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	for c := range rm.conns {
		select {
		case c.Send <- data:
		default:
			observability.DroppedSendsTotal.Inc()
			log.Printf("[WS] chat %d conn=%s send buffer full, dropping frame", chatID, c.ID)
		}
	}
	rm.mu.Unlock()

	observability.BroadcastsTotal.Inc()
}

// ConnectionCount reports the number of live connections across all rooms.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, rm := range r.rooms {
		rm.mu.Lock()
		total += len(rm.conns)
		rm.mu.Unlock()
	}
	return total
}

// Shutdown drops every room and closes all client send channels, stopping
// their writer goroutines.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[int64]*room)
	r.mu.Unlock()

	for chatID, rm := range rooms {
		rm.mu.Lock()
		rm.closed = true
		for c := range rm.conns {
			close(c.Send)
			observability.ConnectionsGauge.Dec()
		}
		rm.conns = make(map[*Client]struct{})
		rm.users = make(map[int64]int)
		rm.mu.Unlock()
		observability.RoomsGauge.Dec()
		log.Printf("[WS] chat %d closed on shutdown", chatID)
	}
}
