package logger

import (
	"log/slog"

	"go.uber.org/zap"
)

var (
	def *slog.Logger
	zl  *zap.Logger
)

// Init настраивает slog в зависимости от среды и ставит его логгером по умолчанию.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "app"
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	// Выбор бекенда по умолчанию
	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h, zl = newZapHandler(cfg)
	default:
		h, zl = newStdHandler(cfg), nil
	}

	base := slog.New(traceHandler{h.WithAttrs(commonAttr(cfg))})
	slog.SetDefault(base)
	def = base
	return base
}

func L() *slog.Logger {
	if def != nil {
		return def
	}
	return Init(Config{})
}

// Sync сбрасывает буферы zap; для std ничего не делает.
func Sync() error {
	if zl == nil {
		return nil
	}
	return zl.Sync()
}
