package handlers

import (
	"campus_market/internal/chat"
	"campus_market/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ChatHandler struct {
	Hub  *ws.Hub
	Chat *chat.Service
	Log  *zap.Logger
}

func NewChatHandler(hub *ws.Hub, svc *chat.Service, log *zap.Logger) *ChatHandler {
	return &ChatHandler{Hub: hub, Chat: svc, Log: log}
}

// WebSocketUpgradeMiddleware ensures the client is trying to upgrade to WebSocket
func (h *ChatHandler) WebSocketUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler function
func (h *ChatHandler) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("user_id").(uint)
		if !ok || userID == 0 {
			h.Log.Warn("websocket connection without user")
			_ = conn.Close()
			return
		}
		ws.NewClient(h.Hub, conn, h.Chat, userID).Serve()
	})
}

// InitPrivateChatRequest defines payload for starting a chat
type InitPrivateChatRequest struct {
	TargetUserID uint  `json:"target_user_id"`
	ProductID    *uint `json:"product_id"`
}

// InitPrivateChat - POST /api/chats/private gets an existing private room
// or creates a new one.
func (h *ChatHandler) InitPrivateChat(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req InitPrivateChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	room, isNew, err := h.Chat.OpenPrivate(c.UserContext(), userID, req.TargetUserID, req.ProductID)
	if err != nil {
		return mapError(err)
	}
	data := fiber.Map{"room_id": room.ID, "created": isNew, "room": room}
	if isNew {
		return created(c, "Chat created", data)
	}
	return ok(c, "Chat found", data)
}

// GetMyChats - GET /api/chats
func (h *ChatHandler) GetMyChats(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	rooms, err := h.Chat.Rooms(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, "Chats", rooms)
}

// GetChatMessages - GET /api/chats/:roomID/messages, newest first.
func (h *ChatHandler) GetChatMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	roomID, err := paramID(c, "roomID")
	if err != nil {
		return err
	}
	messages, err := h.Chat.Messages(c.UserContext(), userID, roomID,
		c.QueryInt("limit", chat.DefaultMessageLimit), c.QueryInt("offset", 0))
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Messages", messages)
}

// MarkRoomRead - POST /api/chats/:roomID/read
func (h *ChatHandler) MarkRoomRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	roomID, err := paramID(c, "roomID")
	if err != nil {
		return err
	}
	receipts, err := h.Chat.MarkRead(c.UserContext(), userID, roomID)
	if err != nil {
		return mapError(err)
	}
	h.Hub.PublishReceipts(receipts)
	return ok(c, "Messages marked as read", fiber.Map{"marked": len(receipts)})
}

type roomStatus struct {
	UserID   uint `json:"user_id"`
	InRoom   bool `json:"in_room"`
	IsOnline bool `json:"is_online"`
}

// GetRoomStatus - GET /api/chats/:roomID/status reports who is online and
// who has the room open.
func (h *ChatHandler) GetRoomStatus(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	roomID, err := paramID(c, "roomID")
	if err != nil {
		return err
	}
	member, err := h.Chat.IsParticipant(c.UserContext(), userID, roomID)
	if err != nil {
		return err
	}
	if !member {
		return mapError(chat.ErrNotParticipant)
	}
	participants, err := h.Chat.Participants(c.UserContext(), roomID)
	if err != nil {
		return err
	}

	inRoom := make(map[uint]bool)
	for _, id := range h.Hub.UsersInRoom(roomID) {
		inRoom[id] = true
	}
	statuses := make([]roomStatus, 0, len(participants))
	for _, id := range participants {
		statuses = append(statuses, roomStatus{
			UserID:   id,
			InRoom:   inRoom[id],
			IsOnline: h.Hub.IsUserOnline(id),
		})
	}
	return ok(c, "Room status", fiber.Map{"room_id": roomID, "statuses": statuses})
}

// DeleteChat - DELETE /api/chats/:roomID removes the room from the user's list.
func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	roomID, err := paramID(c, "roomID")
	if err != nil {
		return err
	}
	if err := h.Chat.Leave(c.UserContext(), userID, roomID); err != nil {
		return mapError(err)
	}
	return ok(c, "Chat deleted successfully", nil)
}
