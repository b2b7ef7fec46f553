package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
http: {addr: ":8080"}
grpc: {addr: ":9090"}
postgres: {dsn: "postgres://x"}
auth: {jwtSecret: "s"}
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, "overwrite", cfg.Invitations.RolePolicy)
	assert.Equal(t, 24*time.Hour, cfg.Invitations.TTL)
	assert.Equal(t, 168*time.Hour, cfg.Invitations.Retention)
	assert.Equal(t, time.Hour, cfg.Invitations.SweepEvery)
	assert.Equal(t, 32, cfg.WS.SendBuffer)
	assert.Equal(t, 15*time.Second, cfg.WS.PingEvery)
	assert.Equal(t, "chat-service", cfg.Logging.Service)
	assert.Equal(t, "chat:", cfg.Redis.Prefix)
	assert.Equal(t, 4000, cfg.Chat.MaxMessageLen)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"no http":        `grpc: {addr: ":1"}`,
		"no dsn":         "http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nauth: {jwtSecret: s}",
		"bad driver":     minimal + "storage: {driver: sqlite}",
		"jwt w/o secret": "http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nstorage: {driver: memory}",
		"bad policy":     minimal + "invitations: {rolePolicy: merge}",
		"bad auth mode":  "http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\nstorage: {driver: memory}\nauth: {mode: oauth}",
		"bad yaml":       "http: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	t.Setenv("POSTGRES_DSN", "postgres://env")
	cfg, err := Parse([]byte("http: {addr: \":1\"}\ngrpc: {addr: \":2\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
}

func TestLoadConfig_SampleFile(t *testing.T) {
	cfg, err := LoadConfig("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "header", cfg.Auth.Mode)
	assert.Len(t, cfg.Storage.SeedUsers, 3)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "./config/config.yaml", ResolvePath(""))

	p := filepath.Join(t.TempDir(), "c.yaml")
	t.Setenv("CONFIG_PATH", p)
	assert.Equal(t, p, ResolvePath(""))
	assert.Equal(t, "flag.yaml", ResolvePath("flag.yaml"))
	_, err := LoadConfig(p)
	assert.True(t, os.IsNotExist(err))
}
