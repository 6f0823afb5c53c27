package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// clientSendBuffer bounds each client's outbound queue. A client whose
// buffer is full misses the frame; delivery is at-most-once.
const clientSendBuffer = 32

// RoomClient is one live connection's membership handle. The transport
// goroutine drains Outbound and writes frames to the socket.
type RoomClient struct {
	UserID   string
	Username string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewRoomClient creates a client handle for a connected user
func NewRoomClient(userID, username string) *RoomClient {
	return &RoomClient{
		UserID:   userID,
		Username: username,
		send:     make(chan []byte, clientSendBuffer),
	}
}

// Outbound returns the channel of frames queued for this client
func (c *RoomClient) Outbound() <-chan []byte {
	return c.send
}

// TrySend queues a frame for the client without blocking. Returns false
// when the client is closed or its buffer is full.
func (c *RoomClient) TrySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Send marshals v and queues it for this client only
func (c *RoomClient) Send(v interface{}) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if !c.TrySend(frame) {
		return fmt.Errorf("client %s is not receiving", c.UserID)
	}
	return nil
}

// Close ends the client's outbound stream. Safe to call more than once.
func (c *RoomClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// RoomHub manages job-scoped broadcast rooms. Membership is ephemeral,
// rebuilt purely from connection events.
type RoomHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*RoomClient]struct{}
}

// NewRoomHub creates a new room hub
func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms: make(map[string]map[*RoomClient]struct{}),
	}
}

// ChatRoom returns the chat room name for a job
func ChatRoom(jobID string) string {
	return "chat:" + jobID
}

// LocationRoom returns the location room name for a job
func LocationRoom(jobID string) string {
	return "location:" + jobID
}

// Join adds a client to a room
func (h *RoomHub) Join(room string, c *RoomClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*RoomClient]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	log.Info().Str("room", room).Str("user_id", c.UserID).Msg("Joined room")
}

// Leave removes a client from a room, dropping the room when empty
func (h *RoomHub) Leave(room string, c *RoomClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}

	log.Info().Str("room", room).Str("user_id", c.UserID).Msg("Left room")
}

// Broadcast marshals v once and fans it out to every member of the room,
// including the sender if joined. Slow members miss the frame.
func (h *RoomHub) Broadcast(room string, v interface{}) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	h.mu.RLock()
	members := make([]*RoomClient, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.TrySend(frame) {
			log.Warn().Str("room", room).Str("user_id", c.UserID).Msg("Dropped frame for slow client")
		}
	}
	return nil
}

// IsMember reports whether a user has at least one connection in a room
func (h *RoomHub) IsMember(room, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// MemberCount returns the number of connections in a room
func (h *RoomHub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
