package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type MembershipRepository struct {
	q querier
}

func (r *MembershipRepository) Add(ctx context.Context, roomID string, userID domain.UserID) error {
	_, err := r.q.Exec(ctx, queryAddMember, roomID, int64(userID))
	return mapPgError("members.add", err, domain.ErrRoomNotFound)
}

func (r *MembershipRepository) Remove(ctx context.Context, roomID string, userID domain.UserID) error {
	tag, err := r.q.Exec(ctx, queryRemoveMember, roomID, int64(userID))
	if isMalformedID(err) {
		return domain.ErrNotInRoom
	}
	if err != nil {
		return mapPgError("members.remove", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}

func (r *MembershipRepository) Exists(ctx context.Context, roomID string, userID domain.UserID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, queryMemberExists, roomID, int64(userID)).Scan(&exists)
	if isMalformedID(err) {
		return false, nil
	}
	if err != nil {
		return false, mapPgError("members.exists", err, nil)
	}
	return exists, nil
}

func (r *MembershipRepository) ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error) {
	rows, err := r.q.Query(ctx, queryRoomsForUser, int64(userID))
	if err != nil {
		return nil, mapPgError("members.roomsForUser", err, nil)
	}
	rooms, err := collectRooms(rows)
	if err != nil {
		return nil, mapPgError("members.roomsForUser", err, nil)
	}
	return rooms, nil
}

func (r *MembershipRepository) ListMembersForRoom(ctx context.Context, roomID string) ([]domain.MemberDetailed, error) {
	rows, err := r.q.Query(ctx, queryMembersForRoom, roomID)
	if err != nil {
		return nil, mapPgError("members.forRoom", err, nil)
	}
	defer rows.Close()

	out := make([]domain.MemberDetailed, 0, 16)
	for rows.Next() {
		var (
			md  domain.MemberDetailed
			uid int64
		)
		if err := rows.Scan(&uid, &md.Name, &md.Email, &md.JoinedAt); err != nil {
			return nil, mapPgError("members.forRoom", err, nil)
		}
		md.UserID = domain.UserID(uid)
		out = append(out, md)
	}
	return out, rows.Err()
}
