package postgres

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type UserRepository struct {
	q querier
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleBase
	}
	if u.Presence == "" {
		u.Presence = domain.PresenceOffline
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = time.Now()
	}
	_, err := r.q.Exec(ctx, queryCreateUser,
		int64(u.ID), u.Name, u.Email, string(u.Role), string(u.Presence), u.LastSeen)
	return mapPgError("users.create", err, nil)
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var (
		uid      int64
		name     string
		email    string
		role     string
		presence string
		lastSeen time.Time
	)
	err := r.q.QueryRow(ctx, queryGetUserByID, int64(id)).
		Scan(&uid, &name, &email, &role, &presence, &lastSeen)
	if err != nil {
		return nil, mapPgError("users.get", err, domain.ErrUserNotFound)
	}

	return &domain.User{
		ID:       domain.UserID(uid),
		Name:     name,
		Email:    email,
		Role:     domain.Role(role),
		Presence: domain.Presence(presence),
		LastSeen: lastSeen,
	}, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error {
	return r.exec(ctx, "users.updateRole", queryUpdateUserRole, int64(id), string(role))
}

func (r *UserRepository) UpdatePresence(ctx context.Context, id domain.UserID, p domain.Presence, lastSeen time.Time) error {
	return r.exec(ctx, "users.updatePresence", queryUpdateUserPresence, int64(id), string(p), lastSeen)
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id domain.UserID, at time.Time) error {
	return r.exec(ctx, "users.touchLastSeen", queryTouchUserLastSeen, int64(id), at)
}

func (r *UserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return mapPgError(op, err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
