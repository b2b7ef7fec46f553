package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

const maxRoomNameLen = 100

type RoomService struct {
	store repository.Store
}

func NewRoomService(store repository.Store) *RoomService {
	return &RoomService{store: store}
}

// CreateStanding создаёт постоянную комнату; создатель сразу становится участником.
func (s *RoomService) CreateStanding(ctx context.Context, name string, creatorID domain.UserID) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxRoomNameLen {
		return nil, fmt.Errorf("%w: room name must be 1..%d chars", domain.ErrInvalidInput, maxRoomNameLen)
	}

	room := &domain.Room{Name: name, CreatedBy: creatorID}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return fmt.Errorf("rooms.Create: %w", err)
		}
		return tx.Memberships().Add(ctx, room.ID, creatorID)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ResolveContext: комната и её родитель, ровно один уровень.
func (s *RoomService) ResolveContext(ctx context.Context, id string) (*domain.RoomContext, error) {
	room, err := s.store.Rooms().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &domain.RoomContext{Room: room}
	if room.ParentID == nil {
		return out, nil
	}
	parent, err := s.store.Rooms().Get(ctx, *room.ParentID)
	if err != nil {
		return nil, fmt.Errorf("resolve parent %s: %w", *room.ParentID, err)
	}
	out.Parent = parent
	return out, nil
}

// ListRooms: постоянные комнаты с курсорной пагинацией.
func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	return s.store.Rooms().List(ctx, repository.ClampLimit(limit, 20, 50), cursor)
}

// DeleteRoom удаляет комнату; приглашения остаются.
func (s *RoomService) DeleteRoom(ctx context.Context, id string, requesterID domain.UserID) error {
	room, err := s.store.Rooms().Get(ctx, id)
	if err != nil {
		return err
	}
	if room.CreatedBy != requesterID {
		user, err := s.store.Users().GetByID(ctx, requesterID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleAdmin {
			return domain.ErrForbidden
		}
	}
	return s.store.Rooms().Delete(ctx, id)
}
