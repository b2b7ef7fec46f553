package memstore

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type invitationRepo repos

func (r invitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	return r.v.run(ctx, func(st *state) error {
		if _, ok := st.invitations[inv.Token]; ok {
			return domain.ErrAlreadyExists
		}
		if _, ok := st.rooms[inv.RoomID]; !ok {
			return domain.ErrRoomNotFound
		}
		st.invitations[inv.Token] = *inv
		return nil
	})
}

// GetForUpdate: блокировку даёт мьютекс транзакции.
func (r invitationRepo) GetForUpdate(ctx context.Context, token string) (*domain.Invitation, error) {
	var out domain.Invitation
	err := r.v.run(ctx, func(st *state) error {
		inv, ok := st.invitations[token]
		if !ok {
			return domain.ErrInvitationNotFound
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r invitationRepo) GetDetailed(ctx context.Context, token string) (*domain.InvitationDetails, error) {
	var out domain.InvitationDetails
	err := r.v.run(ctx, func(st *state) error {
		inv, ok := st.invitations[token]
		if !ok {
			return domain.ErrInvitationNotFound
		}
		out.Invitation = inv
		if rm, ok := st.rooms[inv.RoomID]; ok {
			out.RoomName = rm.Name
		}
		if u, ok := st.users[inv.CreatorID]; ok {
			out.CreatorName = u.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r invitationRepo) MarkUsed(ctx context.Context, token string) error {
	return r.v.run(ctx, func(st *state) error {
		inv, ok := st.invitations[token]
		if !ok {
			return domain.ErrInvitationNotFound
		}
		if inv.IsUsed {
			return domain.ErrAlreadyUsed
		}
		inv.IsUsed = true
		st.invitations[token] = inv
		return nil
	})
}

func (r invitationRepo) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.v.run(ctx, func(st *state) error {
		for tok, inv := range st.invitations {
			if inv.ExpiresAt.Before(before) {
				delete(st.invitations, tok)
				n++
			}
		}
		return nil
	})
	return n, err
}
