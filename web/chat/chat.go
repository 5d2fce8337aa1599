// Package chat stores two-party conversations and pushes new messages to
// connected participants.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"elitehub/web/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxMessageLen  = 4000
	defaultHistory = 50
	maxHistory     = 200
)

var (
	ErrNotFound     = errors.New("chat not found")
	ErrNotMember    = errors.New("not a participant of this chat")
	ErrSelfChat     = errors.New("cannot open a chat with yourself")
	ErrEmptyMessage = errors.New("message text is empty")
	ErrTooLong      = errors.New("message text is too long")
)

type Service struct {
	db  *gorm.DB
	hub *Hub
	log *logrus.Logger
}

func New(conn *gorm.DB, hub *Hub, log *logrus.Logger) *Service {
	return &Service{db: conn, hub: hub, log: log}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// Open returns the chat between uid and peer, creating it on first use.
func (s *Service) Open(ctx context.Context, uid, peer string) (*db.Chat, error) {
	if uid == peer {
		return nil, ErrSelfChat
	}
	a, b := uid, peer
	if b < a {
		a, b = b, a
	}

	conn := s.db.WithContext(ctx)
	var count int64
	if err := conn.Model(&db.User{}).Where("uid = ?", peer).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("user %s: %w", peer, ErrNotFound)
	}

	// The unique index on the member pair settles concurrent first opens.
	var room db.Chat
	err := conn.Where("member_a = ? AND member_b = ?", a, b).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		room = db.Chat{ID: uuid.NewString(), MemberA: a, MemberB: b}
		err = conn.Create(&room).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			room = db.Chat{}
			err = conn.Where("member_a = ? AND member_b = ?", a, b).First(&room).Error
		}
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Member loads chatID and checks that uid takes part in it.
func (s *Service) Member(ctx context.Context, chatID, uid string) (*db.Chat, error) {
	var room db.Chat
	if err := s.db.WithContext(ctx).Where("id = ?", chatID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !room.HasMember(uid) {
		return nil, ErrNotMember
	}
	return &room, nil
}

// History returns up to limit messages of chatID, oldest first.
func (s *Service) History(ctx context.Context, chatID, uid string, limit int) ([]db.ChatMessage, error) {
	if _, err := s.Member(ctx, chatID, uid); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistory
	}
	if limit > maxHistory {
		limit = maxHistory
	}

	var msgs []db.ChatMessage
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Send persists a message from uid and publishes it to the room.
func (s *Service) Send(ctx context.Context, chatID, uid, text string) (*db.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len(text) > maxMessageLen {
		return nil, ErrTooLong
	}
	if _, err := s.Member(ctx, chatID, uid); err != nil {
		return nil, err
	}

	msg := db.ChatMessage{ChatID: chatID, SenderUID: uid, Text: text}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	n := s.hub.Publish(msg)
	s.log.WithFields(logrus.Fields{"chat_id": chatID, "uid": uid, "delivered": n}).Debug("chat: message sent")
	return &msg, nil
}
