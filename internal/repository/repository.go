package repository

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error
	UpdatePresence(ctx context.Context, id domain.UserID, p domain.Presence, lastSeen time.Time) error
	TouchLastSeen(ctx context.Context, id domain.UserID, at time.Time) error
}

type RoomRepository interface {
	// Create заполняет ID и CreatedAt.
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id string) (*domain.Room, error)
	// List возвращает только постоянные комнаты.
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Delete(ctx context.Context, id string) error
}

type MembershipRepository interface {
	// Add идемпотентен: повторное добавление не ошибка.
	Add(ctx context.Context, roomID string, userID domain.UserID) error
	Remove(ctx context.Context, roomID string, userID domain.UserID) error
	Exists(ctx context.Context, roomID string, userID domain.UserID) (bool, error)
	ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error)
	ListMembersForRoom(ctx context.Context, roomID string) ([]domain.MemberDetailed, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	// GetForUpdate внутри транзакции блокирует строку приглашения.
	GetForUpdate(ctx context.Context, token string) (*domain.Invitation, error)
	GetDetailed(ctx context.Context, token string) (*domain.InvitationDetails, error)
	// MarkUsed возвращает domain.ErrAlreadyUsed, если флаг уже стоял.
	MarkUsed(ctx context.Context, token string) error
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

type ChatRepository interface {
	Save(ctx context.Context, roomID string, userID domain.UserID, text string, replyTo *string) (*domain.ChatMessage, error)
	History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error)
}

type Repositories interface {
	Users() UserRepository
	Rooms() RoomRepository
	Memberships() MembershipRepository
	Invitations() InvitationRepository
	Chat() ChatRepository
}

// Store: хранилище с транзакциями. Внутри fn нужно использовать только tx,
// иначе записи уйдут мимо транзакции.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close()
}
