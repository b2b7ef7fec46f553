package service

import (
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberService_JoinLeave(t *testing.T) {
	f := newFixture(t)
	svc := NewMemberService(f.store)

	require.NoError(t, svc.JoinStanding(f.ctx, f.room.ID, plain))
	require.NoError(t, svc.JoinStanding(f.ctx, f.room.ID, plain))

	ok, err := svc.IsMember(f.ctx, f.room.ID, plain)
	require.NoError(t, err)
	assert.True(t, ok)

	rooms, err := svc.ListRoomsForUser(f.ctx, plain)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, f.room.ID, rooms[0].ID)

	members, err := svc.ListMembersForRoom(f.ctx, f.room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, svc.Leave(f.ctx, f.room.ID, plain))
	assert.ErrorIs(t, svc.Leave(f.ctx, f.room.ID, plain), domain.ErrNotInRoom)

	_, err = svc.ListMembersForRoom(f.ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestMemberService_PrivateSessionNotJoinable(t *testing.T) {
	f := newFixture(t)
	ev, err := NewSessionService(f.store, nil).StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)

	err = NewMemberService(f.store).JoinStanding(f.ctx, ev.RoomID, elevated)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRoomService_CreateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := NewRoomService(f.store)

	_, err := svc.CreateStanding(f.ctx, "   ", plain)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.CreateStanding(f.ctx, strings.Repeat("x", 101), plain)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	room, err := svc.CreateStanding(f.ctx, "ops", plain)
	require.NoError(t, err)
	ok, err := f.store.Memberships().Exists(f.ctx, room.ID, plain)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := svc.ResolveContext(f.ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, rc.Parent)

	assert.ErrorIs(t, svc.DeleteRoom(f.ctx, room.ID, invitee), domain.ErrForbidden)
	require.NoError(t, svc.DeleteRoom(f.ctx, room.ID, admin))
	_, err = svc.ResolveContext(f.ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestChatService_Save(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.store, 10)

	msg, err := svc.Save(f.ctx, f.room.ID, elevated, "  hi  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)

	_, err = svc.Save(f.ctx, f.room.ID, elevated, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Save(f.ctx, f.room.ID, elevated, strings.Repeat("я", 11), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Save(f.ctx, f.room.ID, plain, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	history, _, err := svc.History(f.ctx, f.room.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestPresenceService_KeepsDND(t *testing.T) {
	f := newFixture(t)
	svc := NewPresenceService(f.store, f.clk.Now)

	require.NoError(t, svc.Connected(f.ctx, plain))
	u, err := svc.Get(f.ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, u.Presence)

	require.NoError(t, svc.Set(f.ctx, plain, domain.PresenceDND))
	require.NoError(t, svc.Disconnected(f.ctx, plain))
	require.NoError(t, svc.Connected(f.ctx, plain))
	u, err = svc.Get(f.ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceDND, u.Presence)

	require.NoError(t, svc.Set(f.ctx, plain, domain.PresenceOnline))
	f.clk.Advance(5 * time.Minute)
	require.NoError(t, svc.Disconnected(f.ctx, plain))
	u, err = svc.Get(f.ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, u.Presence)
	assert.Equal(t, f.clk.Now(), u.LastSeen)

	assert.ErrorIs(t, svc.Set(f.ctx, plain, domain.Presence("AWAY")), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Touch(f.ctx, 999), domain.ErrUserNotFound)
}
