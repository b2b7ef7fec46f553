package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type GRPC struct {
	Addr        string        `yaml:"addr"`
	CallTimeout time.Duration `yaml:"callTimeout"` // guard для вызовов без deadline
	HealthEvery time.Duration `yaml:"healthEvery"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type SeedUser struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type Storage struct {
	Driver    string     `yaml:"driver"` // postgres|memory
	Migrate   bool       `yaml:"migrate"`
	SeedUsers []SeedUser `yaml:"seedUsers"` // только для memory
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // пусто: без шины и без sweep-воркера
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Auth struct {
	Mode      string        `yaml:"mode"` // jwt|header
	JWTSecret string        `yaml:"jwtSecret"`
	Issuer    string        `yaml:"issuer"`
	ClockSkew time.Duration `yaml:"clockSkew"`
}

type Invitations struct {
	TTL        time.Duration `yaml:"ttl"`
	RolePolicy string        `yaml:"rolePolicy"` // overwrite|max
	SweepEvery time.Duration `yaml:"sweepEvery"`
	Retention  time.Duration `yaml:"retention"`
}

type Sessions struct {
	Dedupe bool `yaml:"dedupe"`
}

type WS struct {
	PingEvery     time.Duration `yaml:"pingEvery"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	SendBuffer    int           `yaml:"sendBuffer"`
	RegistryShard int           `yaml:"registryShards"`
}

type Chat struct {
	MaxMessageLen int `yaml:"maxMessageLen"`
}

type Config struct {
	HTTP        HTTP        `yaml:"http"`
	GRPC        GRPC        `yaml:"grpc"`
	Logging     Logging     `yaml:"logging"`
	Storage     Storage     `yaml:"storage"`
	Postgres    Postgres    `yaml:"postgres"`
	Redis       Redis       `yaml:"redis"`
	Auth        Auth        `yaml:"auth"`
	Invitations Invitations `yaml:"invitations"`
	Sessions    Sessions    `yaml:"sessions"`
	WS          WS          `yaml:"ws"`
	Chat        Chat        `yaml:"chat"`
}

// ResolvePath: явный путь (флаг --config), затем CONFIG_PATH, затем дефолт.
func ResolvePath(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// секреты можно не держать в файле
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}

	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "postgres"
		fallthrough
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres|memory, got %q", c.Storage.Driver)
	}

	switch c.Auth.Mode {
	case "":
		c.Auth.Mode = "jwt"
		fallthrough
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwtSecret is required in jwt mode")
		}
	case "header":
	default:
		return fmt.Errorf("auth.mode must be jwt|header, got %q", c.Auth.Mode)
	}
	if c.Auth.ClockSkew < 0 || c.Auth.ClockSkew > time.Minute {
		return errors.New("auth.clockSkew must be in [0..1m]")
	}

	switch c.Invitations.RolePolicy {
	case "":
		c.Invitations.RolePolicy = "overwrite"
	case "overwrite", "max":
	default:
		return fmt.Errorf("invitations.rolePolicy must be overwrite|max, got %q", c.Invitations.RolePolicy)
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	durationOr(&c.HTTP.ReadTimeout, 10*time.Second)
	durationOr(&c.HTTP.WriteTimeout, 15*time.Second)
	durationOr(&c.HTTP.RequestTimeout, 30*time.Second)
	durationOr(&c.HTTP.ShutdownTimeout, 10*time.Second)
	durationOr(&c.GRPC.CallTimeout, 10*time.Second)
	durationOr(&c.GRPC.HealthEvery, 10*time.Second)
	durationOr(&c.Invitations.TTL, 24*time.Hour)
	durationOr(&c.Invitations.SweepEvery, time.Hour)
	durationOr(&c.Invitations.Retention, 168*time.Hour)
	durationOr(&c.WS.PingEvery, 15*time.Second)
	durationOr(&c.WS.WriteTimeout, 5*time.Second)
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 32
	}
	if c.WS.RegistryShard <= 0 {
		c.WS.RegistryShard = 32
	}
	if c.Chat.MaxMessageLen <= 0 {
		c.Chat.MaxMessageLen = 4000
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "chat:"
	}
	return nil
}

func durationOr(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
