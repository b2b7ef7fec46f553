package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/memstore"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		st := memstore.New()
		if err := seedUsers(ctx, st, cfg.Storage.SeedUsers); err != nil {
			return nil, err
		}
		slog.Warn("using in-memory storage, data is lost on restart", "seed_users", len(cfg.Storage.SeedUsers))
		return st, nil
	default:
		st, err := postgres.New(ctx, postgres.Config{
			DSN:               cfg.Postgres.DSN,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
			ApplicationName:   cfg.Postgres.ApplicationName,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return st, nil
	}
}

func seedUsers(ctx context.Context, st repository.Store, users []config.SeedUser) error {
	for _, su := range users {
		role := domain.RoleBase
		if su.Role != "" {
			r, err := domain.ParseRole(su.Role)
			if err != nil {
				return fmt.Errorf("seed user %d: %w", su.ID, err)
			}
			role = r
		}
		u := &domain.User{ID: domain.UserID(su.ID), Name: su.Name, Email: su.Email, Role: role}
		if err := st.Users().Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %d: %w", su.ID, err)
		}
	}
	return nil
}
