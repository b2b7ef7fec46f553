package memstore

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type userRepo repos

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	return r.v.run(ctx, func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return domain.ErrAlreadyExists
		}
		if u.Role == "" {
			u.Role = domain.RoleBase
		}
		if u.Presence == "" {
			u.Presence = domain.PresenceOffline
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var out domain.User
	err := r.v.run(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r userRepo) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error {
	return r.update(ctx, id, func(u *domain.User) { u.Role = role })
}

func (r userRepo) UpdatePresence(ctx context.Context, id domain.UserID, p domain.Presence, lastSeen time.Time) error {
	return r.update(ctx, id, func(u *domain.User) {
		u.Presence = p
		u.LastSeen = lastSeen
	})
}

func (r userRepo) TouchLastSeen(ctx context.Context, id domain.UserID, at time.Time) error {
	return r.update(ctx, id, func(u *domain.User) { u.LastSeen = at })
}

func (r userRepo) update(ctx context.Context, id domain.UserID, fn func(u *domain.User)) error {
	return r.v.run(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		fn(&u)
		st.users[id] = u
		return nil
	})
}
