// Package ws fans chat and order events out to connected websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"campus_market/internal/chat"
	"campus_market/internal/metrics"
	"campus_market/models"

	"go.uber.org/zap"
)

// ErrHubStopped is returned when a client attaches after Run has returned.
var ErrHubStopped = errors.New("websocket hub stopped")

// Event is a JSON object pushed to clients. Every event carries a "type".
type Event map[string]any

// Hub maintains the set of active clients, keyed by user so private
// messages and order updates reach every connection a user has open.
type Hub struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

// NewHub creates a hub. log and m may be nil.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log,
		metrics:    m,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		clients:    make(map[uint]map[*Client]struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case <-ctx.Done():
			h.mu.Lock()
			for _, conns := range h.clients {
				for c := range conns {
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
			h.log.Info("websocket hub stopped")
			return
		}
	}
}

// Register attaches a client to the hub.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Unregister detaches a client. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	conns, online := h.clients[c.UserID]
	if !online {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
	count := len(conns)
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Debug("client connected", zap.Uint("user_id", c.UserID), zap.Int("connections", count))

	if !online {
		h.Broadcast(Event{"type": "user_status", "user_id": c.UserID, "is_online": true})
	}
	h.deliver(c, encode(Event{"type": "online_users_list", "user_ids": h.OnlineUsers()}))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.dropLocked(c) {
		h.mu.Unlock()
		return
	}
	_, stillOnline := h.clients[c.UserID]
	h.mu.Unlock()

	h.log.Debug("client disconnected", zap.Uint("user_id", c.UserID), zap.Bool("still_online", stillOnline))
	if !stillOnline {
		h.Broadcast(Event{"type": "user_status", "user_id": c.UserID, "is_online": false})
	}
}

// dropLocked removes c and closes its send channel. It reports whether c
// was still registered. h.mu must be held.
func (h *Hub) dropLocked(c *Client) bool {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.send)
	h.metrics.ConnectionClosed()
	return true
}

// deliver queues a frame for one client. A client whose buffer is full is
// disconnected.
func (h *Hub) deliver(c *Client, frame []byte) {
	if frame == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(c, frame)
}

func (h *Hub) deliverLocked(c *Client, frame []byte) {
	if _, ok := h.clients[c.UserID][c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		h.log.Warn("dropping slow client", zap.Uint("user_id", c.UserID))
		h.dropLocked(c)
	}
}

// SendToUser delivers ev to every connection of userID.
func (h *Hub) SendToUser(userID uint, ev Event) {
	frame := encode(ev)
	if frame == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userID] {
		h.deliverLocked(c, frame)
	}
}

// Broadcast delivers ev to every connected client.
func (h *Hub) Broadcast(ev Event) {
	frame := encode(ev)
	if frame == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			h.deliverLocked(c, frame)
		}
	}
}

// NotifyOrder pushes an order_status event to userID.
func (h *Hub) NotifyOrder(userID uint, order *models.Order) {
	h.SendToUser(userID, Event{
		"type":     "order_status",
		"order_id": order.ID,
		"status":   order.Status,
		"order":    order,
	})
}

// PublishReceipts tells each message sender that the message was read.
func (h *Hub) PublishReceipts(receipts []chat.Receipt) {
	for _, r := range receipts {
		h.SendToUser(r.SenderID, Event{
			"type":         "read_receipt",
			"message_id":   r.MessageID,
			"chat_room_id": r.ChatRoomID,
			"read_by":      r.ReadBy,
			"read_at":      r.ReadAt,
		})
	}
}

// IsUserOnline reports whether the user has any open connection.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// OnlineUsers returns the ids of connected users in ascending order.
func (h *Hub) OnlineUsers() []uint {
	h.mu.RLock()
	ids := make([]uint, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsUserInRoom reports whether any of the user's connections has roomID open.
func (h *Hub) IsUserInRoom(userID, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		if c.ActiveRoom() == roomID {
			return true
		}
	}
	return false
}

// UsersInRoom returns the users with roomID open on at least one connection.
func (h *Hub) UsersInRoom(roomID uint) []uint {
	h.mu.RLock()
	var ids []uint
	for userID, conns := range h.clients {
		for c := range conns {
			if c.ActiveRoom() == roomID {
				ids = append(ids, userID)
				break
			}
		}
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func encode(ev Event) []byte {
	frame, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	return frame
}
