package main

import (
	"context"
	"testing"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	err := seedUsers(ctx, st, []config.SeedUser{
		{ID: 1, Name: "admin", Role: "admin"},
		{ID: 2, Name: "bob"},
	})
	require.NoError(t, err)

	u, err := st.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	u, err = st.Users().GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBase, u.Role)

	err = seedUsers(ctx, st, []config.SeedUser{{ID: 3, Role: "root"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	err = seedUsers(ctx, st, []config.SeedUser{{ID: 1}})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{
		Driver:    "memory",
		SeedUsers: []config.SeedUser{{ID: 7, Name: "dev"}},
	}}
	st, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Ping(context.Background()))
	_, err = st.Users().GetByID(context.Background(), 7)
	assert.NoError(t, err)
}
