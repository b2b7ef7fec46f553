package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store: repository.Store поверх пула pgx.
type Store struct {
	pool *pgxpool.Pool
	repos
}

var _ repository.Store = (*Store)(nil)

// New открывает пул и проверяет соединение; без ответа базы сервис не стартует.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, fmt.Errorf("postgres.config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres.pool: %w", err)
	}
	s := NewFromPool(pool)
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.ping: %w", err)
	}
	return s, nil
}

func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: repos{q: pool}}
}

// WithinTx выполняет fn в одной транзакции: ошибка или паника: откат.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, repos{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return bounded(ctx, pingTimeout, s.pool.Ping)
}

func (s *Store) Close() {
	s.pool.Close()
}

type repos struct {
	q querier
}

func (r repos) Users() repository.UserRepository             { return &UserRepository{q: r.q} }
func (r repos) Rooms() repository.RoomRepository             { return &RoomRepository{q: r.q} }
func (r repos) Memberships() repository.MembershipRepository { return &MembershipRepository{q: r.q} }
func (r repos) Invitations() repository.InvitationRepository { return &InvitationRepository{q: r.q} }
func (r repos) Chat() repository.ChatRepository              { return &ChatRepository{q: r.q} }
