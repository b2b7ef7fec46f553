package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

const DefaultMaxMessageLen = 4000

type ChatService struct {
	store  repository.Store
	maxLen int
}

func NewChatService(store repository.Store, maxLen int) *ChatService {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	return &ChatService{store: store, maxLen: maxLen}
}

// Save сохраняет сообщение участника комнаты.
func (s *ChatService) Save(ctx context.Context, roomID string, userID domain.UserID, text string, replyTo *string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > s.maxLen {
		return nil, fmt.Errorf("%w: message too long", domain.ErrInvalidInput)
	}

	member, err := s.store.Memberships().Exists(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrForbidden
	}
	return s.store.Chat().Save(ctx, roomID, userID, text, replyTo)
}

func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	return s.store.Chat().History(ctx, roomID, after, repository.ClampLimit(limit, 50, 200))
}
