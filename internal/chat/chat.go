// Package chat persists private conversations: rooms, participants,
// messages and read state. Realtime delivery lives in internal/ws.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"campus_market/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("chat room not found")
	ErrNotParticipant = errors.New("you are not a member of this chat room")
	ErrSelfChat       = errors.New("cannot chat with yourself")
	ErrEmptyMessage   = errors.New("message content is required")
	ErrUnknownUser    = errors.New("target user not found")
)

const (
	DefaultMessageLimit = 50
	maxMessageLimit     = 200
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RoomSummary is one row of a user's chat list.
type RoomSummary struct {
	ID                 uint       `json:"id"`
	Type               string     `json:"type"`
	ProductID          *uint      `json:"product_id"`
	LastMessageContent string     `json:"last_message"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	OtherUserID        uint       `json:"other_user_id"`
	OtherUsername      string     `json:"other_username"`
	OtherImageURL      string     `json:"other_image_url"`
	UnreadCount        int64      `json:"unread_count"`
}

// Outgoing is a message a participant wants to send.
type Outgoing struct {
	ClientID    string
	Content     string
	MediaType   string
	MediaURL    string
	ProductInfo string
}

// Receipt reports that a message was read by a participant.
type Receipt struct {
	MessageID  uint      `json:"message_id"`
	ChatRoomID uint      `json:"chat_room_id"`
	SenderID   uint      `json:"-"`
	ReadBy     uint      `json:"read_by"`
	ReadAt     time.Time `json:"read_at"`
}

// OpenPrivate returns the private room shared by the two users, creating
// it when none exists. A participation the caller previously deleted is
// restored.
func (s *Service) OpenPrivate(ctx context.Context, userID, targetID uint, productID *uint) (*models.ChatRoom, bool, error) {
	if userID == targetID {
		return nil, false, ErrSelfChat
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, false, ErrUnknownUser
	}

	var roomID uint
	err := db.Raw(`
		SELECT cr.id
		FROM chat_rooms cr
		JOIN chat_participants cp1 ON cr.id = cp1.chat_room_id
		JOIN chat_participants cp2 ON cr.id = cp2.chat_room_id
		WHERE cr.type = 'private' AND cp1.user_id = ? AND cp2.user_id = ?
		LIMIT 1`, userID, targetID).Scan(&roomID).Error
	if err != nil {
		return nil, false, err
	}

	if roomID != 0 {
		if err := db.Unscoped().Model(&models.ChatParticipant{}).
			Where("chat_room_id = ? AND user_id = ?", roomID, userID).
			Update("deleted_at", nil).Error; err != nil {
			return nil, false, err
		}
		room, err := s.room(db, roomID)
		return room, false, err
	}

	room := &models.ChatRoom{Type: "private", ProductID: productID}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		participants := []models.ChatParticipant{
			{ChatRoomID: room.ID, UserID: userID},
			{ChatRoomID: room.ID, UserID: targetID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, false, err
	}
	room, err = s.room(db, room.ID)
	return room, true, err
}

// Rooms lists the user's visible rooms, most recently active first.
func (s *Service) Rooms(ctx context.Context, userID uint) ([]RoomSummary, error) {
	var rooms []RoomSummary
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			cr.id, cr.type, cr.product_id, cr.last_message_content, cr.last_message_at,
			u.id AS other_user_id, u.username AS other_username, u.image_url AS other_image_url,
			(
				SELECT COUNT(*) FROM messages m
				WHERE m.chat_room_id = cr.id AND m.is_read = ? AND m.sender_id != ? AND m.deleted_at IS NULL
			) AS unread_count
		FROM chat_rooms cr
		JOIN chat_participants cp ON cr.id = cp.chat_room_id
		LEFT JOIN chat_participants cp_other ON cr.id = cp_other.chat_room_id AND cp_other.user_id != ?
		LEFT JOIN users u ON cp_other.user_id = u.id
		WHERE cp.user_id = ? AND cp.deleted_at IS NULL
		ORDER BY cr.last_message_at IS NULL, cr.last_message_at DESC, cr.id DESC`,
		false, userID, userID, userID).Scan(&rooms).Error
	return rooms, err
}

// Messages returns a page of the room's history, newest first.
func (s *Service) Messages(ctx context.Context, userID, roomID uint, limit, offset int) ([]models.Message, error) {
	if err := s.requireParticipant(ctx, userID, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, full_name, image_url")
		}).
		Where("chat_room_id = ?", roomID).
		Order("created_at desc, id desc").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	return messages, err
}

// Send persists a message and returns it with the ids of the other
// participants. A retry carrying the same client id returns the stored
// message instead of writing a duplicate.
func (s *Service) Send(ctx context.Context, senderID, roomID uint, out Outgoing) (*models.Message, []uint, error) {
	out.Content = strings.TrimSpace(out.Content)
	if out.Content == "" && out.MediaURL == "" {
		return nil, nil, ErrEmptyMessage
	}
	if out.MediaType == "" {
		out.MediaType = "text"
	}

	var msg models.Message
	var recipients []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members, err := participantIDs(tx.Unscoped(), roomID)
		if err != nil {
			return err
		}
		if !slices.Contains(members, senderID) {
			return ErrNotParticipant
		}
		for _, id := range members {
			if id != senderID {
				recipients = append(recipients, id)
			}
		}

		if out.ClientID != "" {
			err := tx.Where("sender_id = ? AND chat_room_id = ? AND client_id = ?", senderID, roomID, out.ClientID).
				First(&msg).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		msg = models.Message{
			ChatRoomID:  roomID,
			SenderID:    senderID,
			ClientID:    out.ClientID,
			Content:     out.Content,
			MediaType:   out.MediaType,
			MediaURL:    out.MediaURL,
			ProductInfo: out.ProductInfo,
		}
		if err := tx.Omit("Sender").Create(&msg).Error; err != nil {
			return err
		}

		preview := msg.Content
		if preview == "" {
			preview = "[" + msg.MediaType + "]"
		}
		if err := tx.Model(&models.ChatRoom{}).Where("id = ?", roomID).Updates(map[string]any{
			"last_message_content": preview,
			"last_message_at":      msg.CreatedAt,
		}).Error; err != nil {
			return err
		}

		// A new message brings the room back for anyone who had deleted it.
		return tx.Unscoped().Model(&models.ChatParticipant{}).
			Where("chat_room_id = ? AND deleted_at IS NOT NULL", roomID).
			Update("deleted_at", nil).Error
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.db.WithContext(ctx).Select("id, username, full_name, image_url").
		First(&msg.Sender, senderID).Error; err != nil {
		return nil, nil, err
	}
	return &msg, recipients, nil
}

// MarkRead flags every unread message in the room sent by someone else as
// read by userID and returns a receipt per message.
func (s *Service) MarkRead(ctx context.Context, userID, roomID uint) ([]Receipt, error) {
	if err := s.requireParticipant(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.markRead(ctx, userID, "chat_room_id = ?", roomID)
}

// MarkMessageRead flags a single message as read by a participant other
// than its sender. Reading an already read message yields no receipt.
func (s *Service) MarkMessageRead(ctx context.Context, userID, messageID uint) ([]Receipt, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).First(&msg, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, userID, msg.ChatRoomID); err != nil {
		return nil, err
	}
	return s.markRead(ctx, userID, "id = ?", messageID)
}

func (s *Service) markRead(ctx context.Context, userID uint, cond string, arg uint) ([]Receipt, error) {
	var receipts []Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread []models.Message
		if err := tx.Select("id, chat_room_id, sender_id").
			Where(cond, arg).
			Where("sender_id != ? AND is_read = ?", userID, false).
			Order("id").Find(&unread).Error; err != nil {
			return err
		}
		if len(unread) == 0 {
			return nil
		}

		now := time.Now().UTC()
		ids := make([]uint, len(unread))
		for i, m := range unread {
			ids[i] = m.ID
			receipts = append(receipts, Receipt{
				MessageID:  m.ID,
				ChatRoomID: m.ChatRoomID,
				SenderID:   m.SenderID,
				ReadBy:     userID,
				ReadAt:     now,
			})
		}
		return tx.Model(&models.Message{}).Where("id IN ?", ids).
			Updates(map[string]any{"is_read": true, "read_at": now}).Error
	})
	return receipts, err
}

// Leave hides the room from the user's chat list. The other participant
// keeps the conversation.
func (s *Service) Leave(ctx context.Context, userID, roomID uint) error {
	res := s.db.WithContext(ctx).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.ChatParticipant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Participants returns the ids of every member of the room, including
// those who hid it.
func (s *Service) Participants(ctx context.Context, roomID uint) ([]uint, error) {
	return participantIDs(s.db.WithContext(ctx).Unscoped(), roomID)
}

// IsParticipant reports whether userID belongs to roomID.
func (s *Service) IsParticipant(ctx context.Context, userID, roomID uint) (bool, error) {
	err := s.requireParticipant(ctx, userID, roomID)
	if errors.Is(err, ErrNotParticipant) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) requireParticipant(ctx context.Context, userID, roomID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.ChatParticipant{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}

func (s *Service) room(db *gorm.DB, roomID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := db.Preload("Participants.User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, username, full_name, image_url")
	}).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func participantIDs(db *gorm.DB, roomID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.ChatParticipant{}).
		Where("chat_room_id = ?", roomID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
