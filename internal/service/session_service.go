package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

// Notifier доставляет событие всем активным соединениям пользователя.
// Доставка best-effort: ошибка не откатывает уже созданную сессию.
type Notifier interface {
	NotifyUser(ctx context.Context, userID domain.UserID, ev domain.PrivateSessionEvent) error
}

// Spawner создаёт приватные сессии; реализуют SessionService и DedupSpawner.
type Spawner interface {
	StartPrivateSession(ctx context.Context, parentID string, initiatorID, targetID domain.UserID) (*domain.PrivateSessionEvent, error)
}

type SessionService struct {
	store    repository.Store
	notifier Notifier
}

func NewSessionService(store repository.Store, notifier Notifier) *SessionService {
	return &SessionService{store: store, notifier: notifier}
}

// StartPrivateSession создаёт дочернюю комнату под постоянной, добавляет
// обоих участников одной транзакцией и после коммита уведомляет цель.
// Возвращаемое событие адресовано инициатору.
func (s *SessionService) StartPrivateSession(ctx context.Context, parentID string, initiatorID, targetID domain.UserID) (*domain.PrivateSessionEvent, error) {
	if initiatorID == targetID {
		return nil, fmt.Errorf("%w: cannot start a session with yourself", domain.ErrInvalidInput)
	}

	var ev domain.PrivateSessionEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		parent, err := tx.Rooms().Get(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.IsPrivate() {
			return domain.ErrInvalidNesting
		}

		initiator, err := tx.Users().GetByID(ctx, initiatorID)
		if err != nil {
			return err
		}
		target, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			return err
		}

		room := &domain.Room{
			Name:      fmt.Sprintf("%s: %s & %s", parent.Name, initiator.Name, target.Name),
			ParentID:  &parent.ID,
			CreatedBy: initiatorID,
		}
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return err
		}
		if err := tx.Memberships().Add(ctx, room.ID, initiatorID); err != nil {
			return err
		}
		if err := tx.Memberships().Add(ctx, room.ID, targetID); err != nil {
			return err
		}

		ev = domain.PrivateSessionEvent{
			RoomID: room.ID,
			Members: []domain.MemberDetailed{
				{UserID: initiator.ID, Name: initiator.Name, Email: initiator.Email, JoinedAt: room.CreatedAt},
				{UserID: target.ID, Name: target.Name, Email: target.Email, JoinedAt: room.CreatedAt},
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "private session started",
		"room", ev.RoomID, "parent", parentID, "initiator", int64(initiatorID), "target", int64(targetID))

	if s.notifier != nil {
		if err := s.notifier.NotifyUser(ctx, targetID, ev); err != nil {
			slog.WarnContext(ctx, "session.notify failed", slog.Any("err", err), slog.Int64("target", int64(targetID)))
		}
	}
	return &ev, nil
}

// DedupSpawner схлопывает одновременные запросы на одну и ту же пару
// пользователей под одним родителем в одно создание.
// Общий вызов не наследует отмену первого запроса: она не должна
// ронять остальных ожидающих. Каждый вызывающий ждёт в пределах своего ctx.
type DedupSpawner struct {
	next  Spawner
	group singleflight.Group
}

const spawnTimeout = 10 * time.Second

func NewDedupSpawner(next Spawner) *DedupSpawner {
	return &DedupSpawner{next: next}
}

func (d *DedupSpawner) StartPrivateSession(ctx context.Context, parentID string, initiatorID, targetID domain.UserID) (*domain.PrivateSessionEvent, error) {
	a, b := initiatorID, targetID
	if a > b {
		a, b = b, a
	}
	key := parentID + "|" + strconv.FormatInt(int64(a), 10) + "|" + strconv.FormatInt(int64(b), 10)

	ch := d.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), spawnTimeout)
		defer cancel()
		return d.next.StartPrivateSession(shared, parentID, initiatorID, targetID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.PrivateSessionEvent), nil
	}
}
