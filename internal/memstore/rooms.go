package memstore

import (
	"context"
	"sort"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"

	"github.com/google/uuid"
)

type roomRepo repos

func (r roomRepo) Create(ctx context.Context, room *domain.Room) error {
	return r.v.run(ctx, func(st *state) error {
		if room.ParentID != nil {
			if _, ok := st.rooms[*room.ParentID]; !ok {
				return domain.ErrRoomNotFound
			}
		}
		room.ID = uuid.NewString()
		room.CreatedAt = r.v.s.now()
		st.rooms[room.ID] = copyRoom(*room)
		return nil
	})
}

func (r roomRepo) Get(ctx context.Context, id string) (*domain.Room, error) {
	var out domain.Room
	err := r.v.run(ctx, func(st *state) error {
		rm, ok := st.rooms[id]
		if !ok {
			return domain.ErrRoomNotFound
		}
		out = copyRoom(rm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r roomRepo) List(ctx context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := repository.DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	var rooms []domain.Room
	err = r.v.run(ctx, func(st *state) error {
		for _, rm := range st.rooms {
			if rm.ParentID == nil && cur.After(rm.CreatedAt, rm.ID) {
				rooms = append(rooms, copyRoom(rm))
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID > rooms[j].ID
	})
	if len(rooms) > limit {
		rooms = rooms[:limit]
	}

	var next string
	if n := len(rooms); n > 0 {
		next = repository.NextCursor(n, limit, rooms[n-1].CreatedAt, rooms[n-1].ID)
	}
	return rooms, next, nil
}

func (r roomRepo) Delete(ctx context.Context, id string) error {
	return r.v.run(ctx, func(st *state) error {
		delete(st.rooms, id)
		for k := range st.members {
			if k.roomID == id {
				delete(st.members, k)
			}
		}
		return nil
	})
}

func copyRoom(r domain.Room) domain.Room {
	if r.ParentID != nil {
		p := *r.ParentID
		r.ParentID = &p
	}
	return r
}
