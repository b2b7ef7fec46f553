package memstore

import (
	"context"
	"sort"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type membershipRepo repos

func (r membershipRepo) Add(ctx context.Context, roomID string, userID domain.UserID) error {
	return r.v.run(ctx, func(st *state) error {
		if _, ok := st.rooms[roomID]; !ok {
			return domain.ErrRoomNotFound
		}
		key := memberKey{roomID: roomID, userID: userID}
		if _, ok := st.members[key]; ok {
			return nil
		}
		st.members[key] = domain.Membership{RoomID: roomID, UserID: userID, JoinedAt: r.v.s.now()}
		return nil
	})
}

func (r membershipRepo) Remove(ctx context.Context, roomID string, userID domain.UserID) error {
	return r.v.run(ctx, func(st *state) error {
		key := memberKey{roomID: roomID, userID: userID}
		if _, ok := st.members[key]; !ok {
			return domain.ErrNotInRoom
		}
		delete(st.members, key)
		return nil
	})
}

func (r membershipRepo) Exists(ctx context.Context, roomID string, userID domain.UserID) (bool, error) {
	var ok bool
	err := r.v.run(ctx, func(st *state) error {
		_, ok = st.members[memberKey{roomID: roomID, userID: userID}]
		return nil
	})
	return ok, err
}

func (r membershipRepo) ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error) {
	type joined struct {
		room domain.Room
		m    domain.Membership
	}
	var list []joined
	err := r.v.run(ctx, func(st *state) error {
		for k, m := range st.members {
			if k.userID != userID {
				continue
			}
			if rm, ok := st.rooms[k.roomID]; ok {
				list = append(list, joined{room: copyRoom(rm), m: m})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].m.JoinedAt.Equal(list[j].m.JoinedAt) {
			return list[i].m.JoinedAt.Before(list[j].m.JoinedAt)
		}
		return list[i].room.ID < list[j].room.ID
	})

	out := make([]domain.Room, 0, len(list))
	for _, j := range list {
		out = append(out, j.room)
	}
	return out, nil
}

func (r membershipRepo) ListMembersForRoom(ctx context.Context, roomID string) ([]domain.MemberDetailed, error) {
	var out []domain.MemberDetailed
	err := r.v.run(ctx, func(st *state) error {
		for k, m := range st.members {
			if k.roomID != roomID {
				continue
			}
			md := domain.MemberDetailed{UserID: m.UserID, JoinedAt: m.JoinedAt}
			if u, ok := st.users[m.UserID]; ok {
				md.Name, md.Email = u.Name, u.Email
			}
			out = append(out, md)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
