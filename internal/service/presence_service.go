package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

// PresenceService ведёт статус присутствия по событиям реестра соединений.
type PresenceService struct {
	store repository.Store
	now   func() time.Time
}

func NewPresenceService(store repository.Store, now func() time.Time) *PresenceService {
	if now == nil {
		now = time.Now
	}
	return &PresenceService{store: store, now: now}
}

// Connected вызывается на первое соединение пользователя. DND сохраняется.
func (s *PresenceService) Connected(ctx context.Context, userID domain.UserID) error {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	p := domain.PresenceOnline
	if u.Presence == domain.PresenceDND {
		p = domain.PresenceDND
	}
	return s.store.Users().UpdatePresence(ctx, userID, p, s.now())
}

// Disconnected вызывается, когда закрылось последнее соединение.
func (s *PresenceService) Disconnected(ctx context.Context, userID domain.UserID) error {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	p := domain.PresenceOffline
	if u.Presence == domain.PresenceDND {
		p = domain.PresenceDND
	}
	if err := s.store.Users().UpdatePresence(ctx, userID, p, s.now()); err != nil {
		slog.WarnContext(ctx, "presence.disconnected failed", slog.Any("err", err), slog.Int64("user", int64(userID)))
		return err
	}
	return nil
}

func (s *PresenceService) Set(ctx context.Context, userID domain.UserID, p domain.Presence) error {
	switch p {
	case domain.PresenceOnline, domain.PresenceOffline, domain.PresenceDND:
	default:
		return domain.ErrInvalidInput
	}
	return s.store.Users().UpdatePresence(ctx, userID, p, s.now())
}

func (s *PresenceService) Touch(ctx context.Context, userID domain.UserID) error {
	return s.store.Users().TouchLastSeen(ctx, userID, s.now())
}

func (s *PresenceService) Get(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}
