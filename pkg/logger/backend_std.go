package logger

import "log/slog"

func newStdHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
	}
	if cfg.Env == EnvDev {
		return slog.NewTextHandler(cfg.out(), opts)
	}
	return slog.NewJSONHandler(cfg.out(), opts)
}
