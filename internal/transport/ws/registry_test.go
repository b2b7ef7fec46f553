package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/memstore"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	userID domain.UserID

	mu     sync.Mutex
	queue  []Message
	limit  int // 0: без ограничения
	closed bool
}

func newFakeConn(id string, userID domain.UserID) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (f *fakeConn) ID() string            { return f.id }
func (f *fakeConn) UserID() domain.UserID { return f.userID }

func (f *fakeConn) Enqueue(msg Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || (f.limit > 0 && len(f.queue) >= f.limit) {
		return false
	}
	f.queue = append(f.queue, msg)
	return true
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.queue...)
}

func (f *fakeConn) last(t *testing.T) Message {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (f *fakeConn) ofType(typ string) []Message {
	var out []Message
	for _, m := range f.messages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type env struct {
	ctx     context.Context
	store   *memstore.Store
	reg     *Registry
	fanout  *FanOut
	server  *Server
	general *domain.Room
}

const (
	alice domain.UserID = 10
	bob   domain.UserID = 20
	carol domain.UserID = 30
)

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	for _, u := range []domain.User{
		{ID: alice, Name: "alice", Email: "alice@example.com"},
		{ID: bob, Name: "bob", Email: "bob@example.com"},
		{ID: carol, Name: "carol", Email: "carol@example.com"},
	} {
		u := u
		require.NoError(t, st.Users().Create(ctx, &u))
	}
	general, err := service.NewRoomService(st).CreateStanding(ctx, "general", alice)
	require.NoError(t, err)
	require.NoError(t, st.Memberships().Add(ctx, general.ID, bob))

	members := service.NewMemberService(st)
	reg := NewRegistry(members, 4)
	fanout := NewFanOut(reg)
	srv := NewServer(reg, nil,
		service.NewSessionService(st, fanout),
		service.NewChatService(st, 0),
		service.NewPresenceService(st, nil),
		Options{})
	return &env{ctx: ctx, store: st, reg: reg, fanout: fanout, server: srv, general: general}
}

func frame(t *testing.T, typ string, payload any) inbound {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return inbound{Type: typ, Payload: raw}
}

func TestRegistry_RegisterFirstAndDisconnectLast(t *testing.T) {
	e := newEnv(t)
	a1, a2 := newFakeConn("a1", alice), newFakeConn("a2", alice)

	assert.True(t, e.reg.Register(a1))
	assert.False(t, e.reg.Register(a2))
	assert.Len(t, e.reg.ConnectionsFor(alice), 2)
	assert.Equal(t, 2, e.reg.Count())

	_, last := e.reg.Disconnect("a1")
	assert.False(t, last)
	c, last := e.reg.Disconnect("a2")
	assert.True(t, last)
	assert.Equal(t, "a2", c.ID())

	assert.NotNil(t, e.reg.ConnectionsFor(alice))
	assert.Empty(t, e.reg.ConnectionsFor(alice))

	c, last = e.reg.Disconnect("a2")
	assert.Nil(t, c)
	assert.False(t, last)
}

func TestRegistry_JoinChecksMembership(t *testing.T) {
	e := newEnv(t)
	conn := newFakeConn("c1", carol)
	e.reg.Register(conn)

	_, err := e.reg.Join(e.ctx, "c1", e.general.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, e.reg.Groups("c1"))

	_, err = e.reg.Join(e.ctx, "ghost", e.general.ID)
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	require.NoError(t, e.store.Memberships().Add(e.ctx, e.general.ID, carol))
	ack, err := e.reg.Join(e.ctx, "c1", e.general.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeJoinedRoom, ack.Type)
	assert.Equal(t, []string{e.general.ID}, e.reg.Groups("c1"))
}

func TestRegistry_LeaveAndDisconnectKeepMembership(t *testing.T) {
	e := newEnv(t)
	conn := newFakeConn("b1", bob)
	e.reg.Register(conn)
	_, err := e.reg.Join(e.ctx, "b1", e.general.ID)
	require.NoError(t, err)

	e.reg.Leave("b1", e.general.ID)
	e.reg.Leave("b1", e.general.ID)
	assert.Empty(t, e.reg.Groups("b1"))
	assert.Zero(t, e.reg.Broadcast(e.general.ID, Message{Type: TypeChat}))

	_, err = e.reg.Join(e.ctx, "b1", e.general.ID)
	require.NoError(t, err)
	e.reg.Disconnect("b1")
	assert.Zero(t, e.reg.Broadcast(e.general.ID, Message{Type: TypeChat}))
	assert.Nil(t, e.reg.Groups("b1"))

	ok, err := e.store.Memberships().Exists(e.ctx, e.general.ID, bob)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFanOut_DeliversToEveryConnection(t *testing.T) {
	e := newEnv(t)
	conns := []*fakeConn{newFakeConn("b1", bob), newFakeConn("b2", bob), newFakeConn("b3", bob)}
	for _, c := range conns {
		e.reg.Register(c)
	}
	ev := domain.PrivateSessionEvent{RoomID: "r1"}

	assert.Equal(t, 3, e.fanout.Deliver(bob, SessionStartedMessage(ev)))
	for _, c := range conns {
		assert.Len(t, c.ofType(TypePrivateSessionStarted), 1)
	}
}

func TestFanOut_OfflineUserDropped(t *testing.T) {
	e := newEnv(t)
	assert.Zero(t, e.fanout.Deliver(carol, Message{Type: TypePrivateSessionStarted}))
	assert.NoError(t, e.fanout.NotifyUser(e.ctx, carol, domain.PrivateSessionEvent{RoomID: "r"}))
}

func TestFanOut_FailingConnectionDoesNotBlockOthers(t *testing.T) {
	e := newEnv(t)
	full := newFakeConn("b1", bob)
	full.limit = 1
	require.True(t, full.Enqueue(Message{Type: "filler"}))
	closed := newFakeConn("b2", bob)
	_ = closed.Close()
	healthy := newFakeConn("b3", bob)
	for _, c := range []*fakeConn{full, closed, healthy} {
		e.reg.Register(c)
	}

	assert.Equal(t, 1, e.fanout.Deliver(bob, Message{Type: TypePrivateSessionStarted}))
	assert.Len(t, healthy.ofType(TypePrivateSessionStarted), 1)
}

func TestServer_PrivateSessionReachesAllTargetDevices(t *testing.T) {
	e := newEnv(t)
	initiator := newFakeConn("a1", alice)
	phone, laptop := newFakeConn("b-phone", bob), newFakeConn("b-laptop", bob)
	for _, c := range []*fakeConn{initiator, phone, laptop} {
		e.reg.Register(c)
	}

	e.server.dispatch(e.ctx, initiator, frame(t, TypeStartPrivateSession, StartSessionRequest{
		ParentRoomID: e.general.ID, TargetUserID: int64(bob),
	}))

	created := initiator.last(t)
	require.Equal(t, TypePrivateSessionCreated, created.Type)
	payload := created.Payload.(SessionPayload)
	require.Len(t, payload.Members, 2)
	assert.Equal(t, int64(alice), payload.Members[0].User.ID)
	assert.Equal(t, "bob@example.com", payload.Members[1].User.Email)
	assert.Empty(t, initiator.ofType(TypePrivateSessionStarted))

	for _, c := range []*fakeConn{phone, laptop} {
		got := c.ofType(TypePrivateSessionStarted)
		require.Len(t, got, 1)
		assert.Equal(t, payload.ID, got[0].Payload.(SessionPayload).ID)
	}

	// Обе стороны могут войти в группу новой комнаты.
	e.server.dispatch(e.ctx, phone, frame(t, TypeJoinRoom, RoomRequest{RoomID: payload.ID}))
	assert.Equal(t, TypeJoinedRoom, phone.last(t).Type)
}

func TestServer_NestedSessionRejected(t *testing.T) {
	e := newEnv(t)
	a := newFakeConn("a1", alice)
	e.reg.Register(a)

	e.server.dispatch(e.ctx, a, frame(t, TypeStartPrivateSession, StartSessionRequest{
		ParentRoomID: e.general.ID, TargetUserID: int64(bob),
	}))
	child := a.last(t).Payload.(SessionPayload).ID

	e.server.dispatch(e.ctx, a, frame(t, TypeStartPrivateSession, StartSessionRequest{
		ParentRoomID: child, TargetUserID: int64(bob),
	}))
	errMsg := a.last(t)
	require.Equal(t, TypeError, errMsg.Type)
	assert.Equal(t, domain.KindInvalidNesting, errMsg.Payload.(ErrorPayload).Kind)
	assert.Equal(t, TypeStartPrivateSession, errMsg.Payload.(ErrorPayload).Request)
}

func TestServer_ChatRequiresJoinedGroup(t *testing.T) {
	e := newEnv(t)
	a, b := newFakeConn("a1", alice), newFakeConn("b1", bob)
	e.reg.Register(a)
	e.reg.Register(b)

	e.server.dispatch(e.ctx, a, frame(t, TypeChat, ChatRequest{RoomID: e.general.ID, Message: "hi"}))
	assert.Equal(t, domain.KindForbidden, a.last(t).Payload.(ErrorPayload).Kind)

	e.server.dispatch(e.ctx, a, frame(t, TypeJoinRoom, RoomRequest{RoomID: e.general.ID}))
	e.server.dispatch(e.ctx, b, frame(t, TypeJoinRoom, RoomRequest{RoomID: e.general.ID}))
	e.server.dispatch(e.ctx, a, frame(t, TypeChat, ChatRequest{RoomID: e.general.ID, Message: "hi"}))

	require.Len(t, b.ofType(TypeChat), 1)
	assert.Equal(t, "hi", b.ofType(TypeChat)[0].Payload.(ChatPayload).Message)
	assert.Len(t, a.ofType(TypeChat), 1)
	assert.Len(t, a.ofType(TypeChatAck), 1)
}

func TestServer_UnknownAndInvalidFrames(t *testing.T) {
	e := newEnv(t)
	a := newFakeConn("a1", alice)
	e.reg.Register(a)

	e.server.dispatch(e.ctx, a, inbound{Type: "dance"})
	assert.Equal(t, domain.KindInvalidInput, a.last(t).Payload.(ErrorPayload).Kind)

	e.server.dispatch(e.ctx, a, frame(t, TypeSetPresence, PresenceRequest{Status: "away"}))
	assert.Equal(t, domain.KindInvalidInput, a.last(t).Payload.(ErrorPayload).Kind)

	e.server.dispatch(e.ctx, a, frame(t, TypeSetPresence, PresenceRequest{Status: "dnd"}))
	assert.Equal(t, TypePresenceSet, a.last(t).Type)
	u, err := e.store.Users().GetByID(e.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceDND, u.Presence)
}

func TestRegistry_ConcurrentJoinDisconnect(t *testing.T) {
	e := newEnv(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("b%d", i)
			e.reg.Register(newFakeConn(id, bob))
			_, _ = e.reg.Join(e.ctx, id, e.general.ID)
			e.reg.Broadcast(e.general.ID, Message{Type: TypeChat})
			e.reg.Disconnect(id)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, e.reg.Count())
	assert.Empty(t, e.reg.ConnectionsFor(bob))
	assert.Zero(t, e.reg.Broadcast(e.general.ID, Message{Type: TypeChat}))
}

func TestRegistry_EvictUserStopsRoomBroadcasts(t *testing.T) {
	e := newEnv(t)
	b1, b2, a1 := newFakeConn("b1", bob), newFakeConn("b2", bob), newFakeConn("a1", alice)
	for _, c := range []*fakeConn{b1, b2, a1} {
		e.reg.Register(c)
		_, err := e.reg.Join(e.ctx, c.ID(), e.general.ID)
		require.NoError(t, err)
	}

	require.NoError(t, e.store.Memberships().Remove(e.ctx, e.general.ID, bob))
	assert.Equal(t, 2, e.reg.EvictUser(bob, e.general.ID))
	assert.Equal(t, 0, e.reg.EvictUser(bob, e.general.ID), "second eviction is a no-op")

	for _, c := range []*fakeConn{b1, b2} {
		assert.False(t, e.reg.InGroup(c.ID(), e.general.ID))
		assert.Len(t, c.ofType(TypeLeftRoom), 1)
	}

	n := e.reg.Broadcast(e.general.ID, Message{Type: TypeChat})
	assert.Equal(t, 1, n)
	assert.Empty(t, b1.ofType(TypeChat))
	assert.Len(t, a1.ofType(TypeChat), 1)
}

func TestRegistry_EvictRoomDissolvesGroup(t *testing.T) {
	e := newEnv(t)
	a1, b1 := newFakeConn("a1", alice), newFakeConn("b1", bob)
	for _, c := range []*fakeConn{a1, b1} {
		e.reg.Register(c)
		_, err := e.reg.Join(e.ctx, c.ID(), e.general.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, e.reg.EvictRoom(e.general.ID))
	assert.Equal(t, 0, e.reg.Broadcast(e.general.ID, Message{Type: TypeChat}))
	assert.Empty(t, e.reg.Groups("a1"))
	assert.Len(t, b1.ofType(TypeLeftRoom), 1)
	assert.Equal(t, 0, e.reg.EvictRoom("missing"))
}
