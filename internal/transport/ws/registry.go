package ws

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

var ErrConnectionNotFound = errors.New("connection not found")

// Conn: одно живое соединение пользователя.
type Conn interface {
	ID() string
	UserID() domain.UserID
	// Enqueue не блокирует; false: буфер полон или соединение закрыто.
	Enqueue(msg Message) bool
	Close() error
}

type MembershipChecker interface {
	IsMember(ctx context.Context, roomID string, userID domain.UserID) (bool, error)
}

const defaultShards = 32

type connState struct {
	conn Conn

	mu     sync.Mutex
	groups map[string]struct{}
	closed bool
}

type userShard struct {
	mu    sync.RWMutex
	conns map[domain.UserID]map[string]Conn
}

type connShard struct {
	mu    sync.RWMutex
	conns map[string]*connState
}

type roomShard struct {
	mu    sync.RWMutex
	conns map[string]map[string]Conn
}

// Registry хранит живые соединения и их комнатные группы только в памяти.
// Порядок блокировок: connState.mu -> roomShard.mu; userShard и connShard
// берутся отдельно и ни с чем не вкладываются.
type Registry struct {
	members MembershipChecker

	users []userShard
	conns []connShard
	rooms []roomShard
}

func NewRegistry(members MembershipChecker, shards int) *Registry {
	if shards <= 0 {
		shards = defaultShards
	}
	r := &Registry{
		members: members,
		users:   make([]userShard, shards),
		conns:   make([]connShard, shards),
		rooms:   make([]roomShard, shards),
	}
	for i := 0; i < shards; i++ {
		r.users[i].conns = make(map[domain.UserID]map[string]Conn)
		r.conns[i].conns = make(map[string]*connState)
		r.rooms[i].conns = make(map[string]map[string]Conn)
	}
	return r
}

func strShard(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func (r *Registry) userShard(id domain.UserID) *userShard {
	return &r.users[uint64(id)%uint64(len(r.users))]
}

func (r *Registry) connShard(id string) *connShard {
	return &r.conns[strShard(id, len(r.conns))]
}

func (r *Registry) roomShard(id string) *roomShard {
	return &r.rooms[strShard(id, len(r.rooms))]
}

// Register добавляет соединение; first = это первое соединение пользователя.
func (r *Registry) Register(c Conn) (first bool) {
	cs := r.connShard(c.ID())
	cs.mu.Lock()
	cs.conns[c.ID()] = &connState{conn: c, groups: make(map[string]struct{})}
	cs.mu.Unlock()

	us := r.userShard(c.UserID())
	us.mu.Lock()
	defer us.mu.Unlock()
	set, ok := us.conns[c.UserID()]
	if !ok {
		set = make(map[string]Conn)
		us.conns[c.UserID()] = set
	}
	set[c.ID()] = c
	return len(set) == 1
}

func (r *Registry) state(connID string) (*connState, bool) {
	cs := r.connShard(connID)
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	st, ok := cs.conns[connID]
	return st, ok
}

// Join перепроверяет членство в хранилище и добавляет соединение в группу комнаты.
func (r *Registry) Join(ctx context.Context, connID, roomID string) (Message, error) {
	st, ok := r.state(connID)
	if !ok {
		return Message{}, ErrConnectionNotFound
	}

	member, err := r.members.IsMember(ctx, roomID, st.conn.UserID())
	if err != nil {
		return Message{}, err
	}
	if !member {
		return Message{}, domain.ErrForbidden
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return Message{}, ErrConnectionNotFound
	}
	if _, joined := st.groups[roomID]; !joined {
		st.groups[roomID] = struct{}{}
		rs := r.roomShard(roomID)
		rs.mu.Lock()
		set, ok := rs.conns[roomID]
		if !ok {
			set = make(map[string]Conn)
			rs.conns[roomID] = set
		}
		set[connID] = st.conn
		rs.mu.Unlock()
	}
	return Message{Type: TypeJoinedRoom, Payload: RoomPayload{RoomID: roomID}}, nil
}

// Leave идемпотентен и хранилище не трогает.
func (r *Registry) Leave(connID, roomID string) {
	r.leave(connID, roomID)
}

func (r *Registry) leave(connID, roomID string) bool {
	st, ok := r.state(connID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, joined := st.groups[roomID]; !joined {
		return false
	}
	delete(st.groups, roomID)
	r.removeFromRoom(roomID, connID)
	return true
}

// EvictUser выводит все соединения пользователя из группы комнаты после
// потери членства; каждое выведенное получает leftRoom. Возвращает их число.
func (r *Registry) EvictUser(userID domain.UserID, roomID string) int {
	n := 0
	for _, c := range r.ConnectionsFor(userID) {
		if r.leave(c.ID(), roomID) {
			c.Enqueue(leftRoomMessage(roomID))
			n++
		}
	}
	return n
}

// EvictRoom распускает группу удалённой комнаты.
func (r *Registry) EvictRoom(roomID string) int {
	rs := r.roomShard(roomID)
	rs.mu.RLock()
	targets := make([]Conn, 0, len(rs.conns[roomID]))
	for _, c := range rs.conns[roomID] {
		targets = append(targets, c)
	}
	rs.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if r.leave(c.ID(), roomID) {
			c.Enqueue(leftRoomMessage(roomID))
			n++
		}
	}
	return n
}

func (r *Registry) removeFromRoom(roomID, connID string) {
	rs := r.roomShard(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if set, ok := rs.conns[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(rs.conns, roomID)
		}
	}
}

// Disconnect убирает соединение и все его группы; last = у пользователя
// больше нет соединений. Членство в хранилище не меняется.
func (r *Registry) Disconnect(connID string) (c Conn, last bool) {
	cs := r.connShard(connID)
	cs.mu.Lock()
	st, ok := cs.conns[connID]
	delete(cs.conns, connID)
	cs.mu.Unlock()
	if !ok {
		return nil, false
	}

	st.mu.Lock()
	st.closed = true
	for roomID := range st.groups {
		r.removeFromRoom(roomID, connID)
	}
	st.groups = nil
	st.mu.Unlock()

	us := r.userShard(st.conn.UserID())
	us.mu.Lock()
	defer us.mu.Unlock()
	set := us.conns[st.conn.UserID()]
	delete(set, connID)
	if len(set) == 0 {
		delete(us.conns, st.conn.UserID())
		return st.conn, true
	}
	return st.conn, false
}

// ConnectionsFor: снимок соединений пользователя; пустой срез, если он оффлайн.
func (r *Registry) ConnectionsFor(userID domain.UserID) []Conn {
	us := r.userShard(userID)
	us.mu.RLock()
	defer us.mu.RUnlock()
	set := us.conns[userID]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) InGroup(connID, roomID string) bool {
	st, ok := r.state(connID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	_, joined := st.groups[roomID]
	return joined
}

func (r *Registry) Groups(connID string) []string {
	st, ok := r.state(connID)
	if !ok {
		return nil
	}
	st.mu.Lock()
	out := make([]string, 0, len(st.groups))
	for g := range st.groups {
		out = append(out, g)
	}
	st.mu.Unlock()
	sort.Strings(out)
	return out
}

// Broadcast рассылает сообщение группе комнаты; возвращает число принятых.
func (r *Registry) Broadcast(roomID string, msg Message) int {
	rs := r.roomShard(roomID)
	rs.mu.RLock()
	targets := make([]Conn, 0, len(rs.conns[roomID]))
	for _, c := range rs.conns[roomID] {
		targets = append(targets, c)
	}
	rs.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if c.Enqueue(msg) { // best-effort
			n++
		}
	}
	return n
}

// Count: число живых соединений.
func (r *Registry) Count() int {
	n := 0
	for i := range r.conns {
		r.conns[i].mu.RLock()
		n += len(r.conns[i].conns)
		r.conns[i].mu.RUnlock()
	}
	return n
}
