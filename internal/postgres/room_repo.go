package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"

	"github.com/jackc/pgx/v5"
)

type RoomRepository struct {
	q querier
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	err := r.q.QueryRow(ctx, queryCreateRoom, room.Name, room.ParentID, int64(room.CreatedBy)).
		Scan(&room.ID, &room.CreatedAt)
	return mapPgError("rooms.create", err, domain.ErrRoomNotFound)
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	rm, err := scanRoom(r.q.QueryRow(ctx, queryGetRoom, id))
	if err != nil {
		return nil, mapPgError("rooms.get", err, domain.ErrRoomNotFound)
	}
	return rm, nil
}

func (r *RoomRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := repository.DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queryListStandingRooms, createdAt, id, limit)
	if err != nil {
		return nil, "", mapPgError("rooms.list", err, nil)
	}
	rooms, err := collectRooms(rows)
	if err != nil {
		return nil, "", mapPgError("rooms.list", err, nil)
	}

	var next string
	if n := len(rooms); n > 0 {
		next = repository.NextCursor(n, limit, rooms[n-1].CreatedAt, rooms[n-1].ID)
	}
	return rooms, next, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, queryDeleteRoom, id)
	return mapPgError("rooms.delete", err, nil)
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		rm        domain.Room
		createdBy int64
	)
	if err := row.Scan(&rm.ID, &rm.Name, &rm.ParentID, &createdBy, &rm.CreatedAt); err != nil {
		return nil, err
	}
	rm.CreatedBy = domain.UserID(createdBy)
	return &rm, nil
}

func collectRooms(rows pgx.Rows) ([]domain.Room, error) {
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, rows.Err()
}
