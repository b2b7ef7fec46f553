package postgres

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type InvitationRepository struct {
	q querier
}

func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.q.Exec(ctx, queryCreateInvitation,
		inv.Token, inv.RoomID, string(inv.Role), int64(inv.CreatorID), inv.CreatedAt, inv.ExpiresAt)
	return mapPgError("invitations.create", err, nil)
}

// GetForUpdate берёт row-lock: конкурентный accept по тому же токену ждёт коммита.
func (r *InvitationRepository) GetForUpdate(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.q.QueryRow(ctx, queryGetInvitationForUpdate, token))
	if err != nil {
		return nil, mapPgError("invitations.getForUpdate", err, domain.ErrInvitationNotFound)
	}
	return inv, nil
}

func (r *InvitationRepository) GetDetailed(ctx context.Context, token string) (*domain.InvitationDetails, error) {
	var (
		d         domain.InvitationDetails
		role      string
		creatorID int64
	)
	err := r.q.QueryRow(ctx, queryGetInvitationDetailed, token).Scan(
		&d.Token, &d.RoomID, &role, &creatorID, &d.CreatedAt, &d.ExpiresAt, &d.IsUsed,
		&d.RoomName, &d.CreatorName,
	)
	if err != nil {
		return nil, mapPgError("invitations.getDetailed", err, domain.ErrInvitationNotFound)
	}
	d.Role = domain.Role(role)
	d.CreatorID = domain.UserID(creatorID)
	return &d, nil
}

func (r *InvitationRepository) MarkUsed(ctx context.Context, token string) error {
	tag, err := r.q.Exec(ctx, queryMarkInvitationUsed, token)
	if err != nil {
		return mapPgError("invitations.markUsed", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyUsed
	}
	return nil
}

func (r *InvitationRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, queryDeleteExpiredInvitations, before)
	if err != nil {
		return 0, mapPgError("invitations.deleteExpired", err, nil)
	}
	return tag.RowsAffected(), nil
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var (
		inv       domain.Invitation
		role      string
		creatorID int64
	)
	if err := row.Scan(&inv.Token, &inv.RoomID, &role, &creatorID, &inv.CreatedAt, &inv.ExpiresAt, &inv.IsUsed); err != nil {
		return nil, err
	}
	inv.Role = domain.Role(role)
	inv.CreatorID = domain.UserID(creatorID)
	return &inv, nil
}
