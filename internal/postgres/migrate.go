package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate применяет идемпотентную схему (CREATE ... IF NOT EXISTS).
func (s *Store) Migrate(ctx context.Context) error {
	err := bounded(ctx, migrateTimeout, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
