// Package memstore: хранилище в памяти для dev-режима (storage.driver: memory) и тестов.
// Все операции сериализуются одним мьютексом; транзакция откатывается
// восстановлением снимка состояния.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

type memberKey struct {
	roomID string
	userID domain.UserID
}

type state struct {
	users       map[domain.UserID]domain.User
	rooms       map[string]domain.Room
	members     map[memberKey]domain.Membership
	invitations map[string]domain.Invitation
	messages    []domain.ChatMessage
	msgSeq      int64
}

func newState() *state {
	return &state{
		users:       make(map[domain.UserID]domain.User),
		rooms:       make(map[string]domain.Room),
		members:     make(map[memberKey]domain.Membership),
		invitations: make(map[string]domain.Invitation),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[domain.UserID]domain.User, len(s.users)),
		rooms:       make(map[string]domain.Room, len(s.rooms)),
		members:     make(map[memberKey]domain.Membership, len(s.members)),
		invitations: make(map[string]domain.Invitation, len(s.invitations)),
		messages:    append([]domain.ChatMessage(nil), s.messages...),
		msgSeq:      s.msgSeq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.invitations {
		c.invitations[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

// view держит мьютекс на время операции, если вызов идёт вне транзакции.
type view struct {
	s    *Store
	inTx bool
}

func (v view) run(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.inTx {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(v.s.st)
}

type repos struct {
	v view
}

func (r repos) Users() repository.UserRepository             { return userRepo(r) }
func (r repos) Rooms() repository.RoomRepository             { return roomRepo(r) }
func (r repos) Memberships() repository.MembershipRepository { return membershipRepo(r) }
func (r repos) Invitations() repository.InvitationRepository { return invitationRepo(r) }
func (r repos) Chat() repository.ChatRepository              { return chatRepo(r) }

func (s *Store) base() repos { return repos{v: view{s: s}} }

func (s *Store) Users() repository.UserRepository             { return s.base().Users() }
func (s *Store) Rooms() repository.RoomRepository             { return s.base().Rooms() }
func (s *Store) Memberships() repository.MembershipRepository { return s.base().Memberships() }
func (s *Store) Invitations() repository.InvitationRepository { return s.base().Invitations() }
func (s *Store) Chat() repository.ChatRepository              { return s.base().Chat() }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, repos{v: view{s: s, inTx: true}}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}
