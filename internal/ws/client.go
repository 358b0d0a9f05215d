package ws

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"campus_market/internal/chat"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256

	// Upper bound for the database work behind one inbound frame.
	handleTimeout = 5 * time.Second
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	UserID uint

	hub  *Hub
	conn *websocket.Conn
	chat *chat.Service
	send chan []byte

	mu         sync.Mutex
	activeRoom uint
}

// Inbound is a frame sent by a client.
type Inbound struct {
	Type       string          `json:"type"` // chat, read, join_room, leave_room, typing
	ClientID   string          `json:"client_id,omitempty"`
	ChatRoomID uint            `json:"chat_room_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	MediaType  string          `json:"media_type,omitempty"`
	MediaURL   string          `json:"media_url,omitempty"`
	MessageID  uint            `json:"message_id,omitempty"`
	Product    json.RawMessage `json:"product,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, chatSvc *chat.Service, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		chat:   chatSvc,
		send:   make(chan []byte, sendBuffer),
	}
}

// Serve registers the client and pumps frames until the connection closes.
func (c *Client) Serve() {
	if err := c.hub.Register(c); err != nil {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// ActiveRoom returns the room the client currently has open, or 0.
func (c *Client) ActiveRoom() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRoom
}

func (c *Client) setActiveRoom(roomID uint) uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.activeRoom
	c.activeRoom = roomID
	return prev
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed", zap.Uint("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		c.handle(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(frame []byte) {
	var in Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		c.reply(Event{"type": "error", "error": "malformed message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch in.Type {
	case "chat":
		c.sendChat(ctx, &in)
	case "read":
		receipts, err := c.chat.MarkMessageRead(ctx, c.UserID, in.MessageID)
		if err != nil {
			c.reply(Event{"type": "error", "error": err.Error(), "message_id": in.MessageID})
			return
		}
		c.hub.PublishReceipts(receipts)
	case "join_room":
		c.joinRoom(ctx, in.ChatRoomID)
	case "leave_room":
		if prev := c.setActiveRoom(0); prev != 0 {
			c.roomStatus(ctx, prev, false)
		}
	case "typing":
		c.forwardToRoom(ctx, in.ChatRoomID, Event{
			"type":         "typing",
			"chat_room_id": in.ChatRoomID,
			"user_id":      c.UserID,
		})
	default:
		c.reply(Event{"type": "error", "error": "unknown message type"})
	}
}

// sendChat persists the message and answers the sender with an ack
// carrying the stored message, or a nack so the client can roll back its
// pending entry.
func (c *Client) sendChat(ctx context.Context, in *Inbound) {
	msg, recipients, err := c.chat.Send(ctx, c.UserID, in.ChatRoomID, chat.Outgoing{
		ClientID:    in.ClientID,
		Content:     in.Content,
		MediaType:   in.MediaType,
		MediaURL:    in.MediaURL,
		ProductInfo: string(in.Product),
	})
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyMessage) && !errors.Is(err, chat.ErrNotParticipant) {
			c.hub.log.Error("chat message not stored",
				zap.Uint("user_id", c.UserID), zap.Uint("chat_room_id", in.ChatRoomID), zap.Error(err))
		}
		c.reply(Event{"type": "nack", "client_id": in.ClientID, "chat_room_id": in.ChatRoomID, "error": err.Error()})
		return
	}
	c.hub.metrics.ObserveChatMessage()
	c.reply(Event{"type": "ack", "client_id": in.ClientID, "message": msg})

	ev := Event{"type": "chat", "chat_room_id": msg.ChatRoomID, "sender_id": msg.SenderID, "message": msg}
	for _, id := range recipients {
		c.hub.SendToUser(id, ev)
	}

	// A recipient looking at the room has read the message on arrival.
	for _, id := range recipients {
		if !c.hub.IsUserInRoom(id, msg.ChatRoomID) {
			continue
		}
		receipts, err := c.chat.MarkMessageRead(ctx, id, msg.ID)
		if err != nil {
			c.hub.log.Warn("auto read failed", zap.Uint("message_id", msg.ID), zap.Error(err))
			continue
		}
		c.hub.PublishReceipts(receipts)
	}
}

func (c *Client) joinRoom(ctx context.Context, roomID uint) {
	ok, err := c.chat.IsParticipant(ctx, c.UserID, roomID)
	if err != nil || !ok {
		c.reply(Event{"type": "error", "error": chat.ErrNotParticipant.Error(), "chat_room_id": roomID})
		return
	}
	if prev := c.setActiveRoom(roomID); prev != 0 && prev != roomID {
		c.roomStatus(ctx, prev, false)
	}
	c.roomStatus(ctx, roomID, true)

	receipts, err := c.chat.MarkRead(ctx, c.UserID, roomID)
	if err != nil {
		c.hub.log.Warn("mark room read failed", zap.Uint("chat_room_id", roomID), zap.Error(err))
		return
	}
	c.hub.PublishReceipts(receipts)
}

func (c *Client) roomStatus(ctx context.Context, roomID uint, inRoom bool) {
	c.forwardToRoom(ctx, roomID, Event{
		"type":         "room_status",
		"user_id":      c.UserID,
		"chat_room_id": roomID,
		"in_room":      inRoom,
	})
}

// forwardToRoom sends ev to the other participants of roomID. Nothing is
// sent when the client is not a member.
func (c *Client) forwardToRoom(ctx context.Context, roomID uint, ev Event) {
	members, err := c.chat.Participants(ctx, roomID)
	if err != nil {
		c.hub.log.Warn("room lookup failed", zap.Uint("chat_room_id", roomID), zap.Error(err))
		return
	}
	if !slices.Contains(members, c.UserID) {
		return
	}
	for _, id := range members {
		if id != c.UserID {
			c.hub.SendToUser(id, ev)
		}
	}
}

func (c *Client) reply(ev Event) {
	c.hub.deliver(c, encode(ev))
}
