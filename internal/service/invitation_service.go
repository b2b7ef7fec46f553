package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
	"github.com/cwrk-planet/chat-service/internal/security"
)

// RolePolicy: как роль из приглашения применяется к текущей роли пользователя.
type RolePolicy string

const (
	// RolePolicyOverwrite: роль перезаписывается, BASE-приглашение может понизить ELEVATED.
	RolePolicyOverwrite RolePolicy = "overwrite"
	// RolePolicyMax: остаётся старшая из текущей и приглашённой.
	RolePolicyMax RolePolicy = "max"
)

func ParseRolePolicy(s string) (RolePolicy, error) {
	switch p := RolePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RolePolicyOverwrite, nil
	case RolePolicyOverwrite, RolePolicyMax:
		return p, nil
	default:
		return "", fmt.Errorf("unknown role policy %q", s)
	}
}

func (p RolePolicy) apply(current, invited domain.Role) domain.Role {
	if p == RolePolicyMax {
		return domain.MaxRole(current, invited)
	}
	return invited
}

type InvitationOptions struct {
	TTL        time.Duration
	RolePolicy RolePolicy
	Now        func() time.Time
}

type InvitationService struct {
	store  repository.Store
	ttl    time.Duration
	policy RolePolicy
	now    func() time.Time
	token  func() (string, error)
}

func NewInvitationService(store repository.Store, opts InvitationOptions) *InvitationService {
	if opts.TTL <= 0 {
		opts.TTL = domain.InvitationTTL
	}
	if opts.RolePolicy == "" {
		opts.RolePolicy = RolePolicyOverwrite
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &InvitationService{
		store:  store,
		ttl:    opts.TTL,
		policy: opts.RolePolicy,
		now:    opts.Now,
		token:  security.NewInvitationToken,
	}
}

type AcceptResult struct {
	Success bool
	RoomID  string
}

// Issue выпускает приглашение в постоянную комнату. Выпускать может
// ELEVATED-участник комнаты или ADMIN; приглашать можно только на BASE или ELEVATED.
func (s *InvitationService) Issue(ctx context.Context, roomID string, requesterID domain.UserID, role domain.Role) (*domain.Invitation, error) {
	if role != domain.RoleElevated && role != domain.RoleBase {
		return nil, domain.ErrInvalidRole
	}

	room, err := s.store.Rooms().Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	// приватная сессия: ровно двое, приглашать в неё нельзя
	if room.IsPrivate() {
		return nil, domain.ErrForbidden
	}

	requester, err := s.store.Users().GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.Role.AtLeast(domain.RoleElevated) {
		return nil, domain.ErrForbidden
	}
	if requester.Role != domain.RoleAdmin {
		member, err := s.store.Memberships().Exists(ctx, room.ID, requesterID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, domain.ErrForbidden
		}
	}

	token, err := s.token()
	if err != nil {
		slog.ErrorContext(ctx, "invitation.issue.generateToken failed", slog.Any("err", err))
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	inv := &domain.Invitation{
		Token:     token,
		RoomID:    room.ID,
		Role:      role,
		CreatorID: requesterID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Invitations().Create(ctx, inv); err != nil {
		slog.ErrorContext(ctx, "invitation.issue.create failed", slog.Any("err", err), slog.String("room", room.ID))
		return nil, err
	}

	slog.InfoContext(ctx, "invitation issued",
		"room", room.ID, "creator", int64(requesterID), "role", string(role), "expires_at", inv.ExpiresAt)
	return inv, nil
}

// Accept атомарно гасит токен, добавляет участника и меняет роль.
// Любая ошибка внутри транзакции откатывает все три записи.
func (s *InvitationService) Accept(ctx context.Context, token string, userID domain.UserID) (*AcceptResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvitationNotFound
	}

	var res AcceptResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		inv, err := tx.Invitations().GetForUpdate(ctx, token)
		if err != nil {
			return err
		}
		if inv.IsUsed {
			return domain.ErrAlreadyUsed
		}
		if inv.IsExpired(s.now()) {
			return domain.ErrExpired
		}

		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if err := tx.Invitations().MarkUsed(ctx, token); err != nil {
			return err
		}
		if err := tx.Memberships().Add(ctx, inv.RoomID, userID); err != nil {
			return err
		}
		if err := tx.Users().UpdateRole(ctx, userID, s.policy.apply(user.Role, inv.Role)); err != nil {
			return err
		}

		res = AcceptResult{Success: true, RoomID: inv.RoomID}
		return nil
	})
	if err != nil {
		slog.DebugContext(ctx, "invitation.accept failed", slog.Any("err", err), slog.Int64("user", int64(userID)))
		return nil, err
	}

	slog.InfoContext(ctx, "invitation accepted", "room", res.RoomID, "user", int64(userID))
	return &res, nil
}

// Get: публичное чтение приглашения по токену.
func (s *InvitationService) Get(ctx context.Context, token string) (*domain.InvitationDetails, error) {
	return s.store.Invitations().GetDetailed(ctx, strings.TrimSpace(token))
}

// Sweep удаляет приглашения, истёкшие раньше чем retention назад.
// Корректность accept от него не зависит.
func (s *InvitationService) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.Invitations().DeleteExpiredBefore(ctx, s.now().Add(-retention))
}
