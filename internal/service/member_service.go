package service

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

// MemberService: авторитетное хранилище связей user <-> room.
type MemberService struct {
	store repository.Store
}

func NewMemberService(store repository.Store) *MemberService {
	return &MemberService{store: store}
}

// JoinStanding: прямое вступление; в приватную сессию так попасть нельзя.
func (s *MemberService) JoinStanding(ctx context.Context, roomID string, userID domain.UserID) error {
	room, err := s.store.Rooms().Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.IsPrivate() {
		return domain.ErrForbidden
	}
	return s.store.Memberships().Add(ctx, roomID, userID)
}

func (s *MemberService) Leave(ctx context.Context, roomID string, userID domain.UserID) error {
	return s.store.Memberships().Remove(ctx, roomID, userID)
}

// IsMember не кэшируется: реестр соединений спрашивает при каждом join.
func (s *MemberService) IsMember(ctx context.Context, roomID string, userID domain.UserID) (bool, error) {
	return s.store.Memberships().Exists(ctx, roomID, userID)
}

func (s *MemberService) ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error) {
	return s.store.Memberships().ListRoomsForUser(ctx, userID)
}

func (s *MemberService) ListMembersForRoom(ctx context.Context, roomID string) ([]domain.MemberDetailed, error) {
	if _, err := s.store.Rooms().Get(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.Memberships().ListMembersForRoom(ctx, roomID)
}
