package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[domain.UserID][]domain.PrivateSessionEvent
	err    error
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID domain.UserID, ev domain.PrivateSessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[domain.UserID][]domain.PrivateSessionEvent)
	}
	n.events[userID] = append(n.events[userID], ev)
	return n.err
}

func (n *recordingNotifier) count(userID domain.UserID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events[userID])
}

func TestStartPrivateSession_CreatesChildWithBothMembers(t *testing.T) {
	f := newFixture(t)
	rec := &recordingNotifier{}
	svc := NewSessionService(f.store, rec)

	ev, err := svc.StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)
	require.Len(t, ev.Members, 2)
	assert.Equal(t, plain, ev.Members[0].UserID)
	assert.Equal(t, invitee, ev.Members[1].UserID)
	assert.Equal(t, "bob@example.com", ev.Members[1].Email)

	rc, err := NewRoomService(f.store).ResolveContext(f.ctx, ev.RoomID)
	require.NoError(t, err)
	require.True(t, rc.Room.IsPrivate())
	require.NotNil(t, rc.Parent)
	assert.Equal(t, f.room.ID, rc.Parent.ID)

	members, err := f.store.Memberships().ListMembersForRoom(f.ctx, ev.RoomID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.Equal(t, 1, rec.count(invitee))
	assert.Equal(t, ev.RoomID, rec.events[invitee][0].RoomID)
	assert.Zero(t, rec.count(plain))

	// Приватная сессия не видна в списке постоянных комнат.
	rooms, _, err := NewRoomService(f.store).ListRooms(f.ctx, 0, "")
	require.NoError(t, err)
	for _, r := range rooms {
		assert.NotEqual(t, ev.RoomID, r.ID)
	}
}

func TestStartPrivateSession_Errors(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.store, nil)

	ev, err := svc.StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)

	_, err = svc.StartPrivateSession(f.ctx, ev.RoomID, plain, invitee)
	assert.ErrorIs(t, err, domain.ErrInvalidNesting)
	assert.Equal(t, domain.KindInvalidNesting, domain.Kind(err))

	_, err = svc.StartPrivateSession(f.ctx, "missing", plain, invitee)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = svc.StartPrivateSession(f.ctx, f.room.ID, plain, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.StartPrivateSession(f.ctx, f.room.ID, plain, plain)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStartPrivateSession_NotifyFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	rec := &recordingNotifier{err: errors.New("bus down")}

	ev, err := NewSessionService(f.store, rec).StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)

	_, err = f.store.Rooms().Get(f.ctx, ev.RoomID)
	assert.NoError(t, err)
}

func TestStartPrivateSession_WithoutDedupCreatesDistinctRooms(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.store, nil)

	a, err := svc.StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)
	b, err := svc.StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)
	assert.NotEqual(t, a.RoomID, b.RoomID)
}

type blockingSpawner struct {
	mu      sync.Mutex
	calls   int
	once    sync.Once
	release chan struct{}
	started chan struct{}
	ctxErr  error
}

func (b *blockingSpawner) StartPrivateSession(ctx context.Context, parentID string, _, _ domain.UserID) (*domain.PrivateSessionEvent, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.once.Do(func() { close(b.started) })
	<-b.release
	b.mu.Lock()
	b.ctxErr = ctx.Err()
	b.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &domain.PrivateSessionEvent{RoomID: parentID + "-child"}, nil
}

func TestDedupSpawner_CollapsesConcurrentPair(t *testing.T) {
	inner := &blockingSpawner{release: make(chan struct{}), started: make(chan struct{})}
	d := NewDedupSpawner(inner)

	var wg sync.WaitGroup
	results := make([]*domain.PrivateSessionEvent, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ev, err := d.StartPrivateSession(context.Background(), "p", 1, 2)
		assert.NoError(t, err)
		results[0] = ev
	}()
	<-inner.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Обратный порядок пары даёт тот же ключ.
		ev, err := d.StartPrivateSession(context.Background(), "p", 2, 1)
		assert.NoError(t, err)
		results[1] = ev
	}()

	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "p-child", results[0].RoomID)
	assert.Equal(t, "p-child", results[1].RoomID)
}

func TestDedupSpawner_DifferentParentsNotMerged(t *testing.T) {
	f := newFixture(t)
	other, err := NewRoomService(f.store).CreateStanding(f.ctx, "random", admin)
	require.NoError(t, err)
	d := NewDedupSpawner(NewSessionService(f.store, nil))

	a, err := d.StartPrivateSession(f.ctx, f.room.ID, plain, invitee)
	require.NoError(t, err)
	b, err := d.StartPrivateSession(f.ctx, other.ID, plain, invitee)
	require.NoError(t, err)
	assert.NotEqual(t, a.RoomID, b.RoomID)
}

func TestDedupSpawner_CancelledCallerDoesNotFailOthers(t *testing.T) {
	inner := &blockingSpawner{release: make(chan struct{}), started: make(chan struct{})}
	d := NewDedupSpawner(inner)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.StartPrivateSession(ctx, "p", 1, 2)
		firstErr <- err
	}()
	<-inner.started

	second := make(chan *domain.PrivateSessionEvent, 1)
	go func() {
		ev, err := d.StartPrivateSession(context.Background(), "p", 1, 2)
		assert.NoError(t, err)
		second <- ev
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(inner.release)
	ev := <-second
	require.NotNil(t, ev)
	assert.Equal(t, "p-child", ev.RoomID)

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, inner.ctxErr)
}
