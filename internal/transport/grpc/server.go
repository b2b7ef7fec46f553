package grpcx

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName: имя сервиса в grpc.health.v1.
const ServiceName = "chat.v1.ChatService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter держит статус health-сервиса по периодическим ping'ам хранилища.
type HealthReporter struct {
	health  *health.Server
	pingers map[string]Pinger
	every   time.Duration
	timeout time.Duration
}

func NewHealthReporter(every time.Duration, pingers map[string]Pinger) *HealthReporter {
	if every <= 0 {
		every = 10 * time.Second
	}
	return &HealthReporter{
		health:  health.NewServer(),
		pingers: pingers,
		every:   every,
		timeout: 2 * time.Second,
	}
}

func NewServer(guard time.Duration) *grpc.Server {
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(guard)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
}

func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// Check один раз опрашивает зависимости и выставляет статус.
func (h *HealthReporter) Check(ctx context.Context) bool {
	ok := true
	for name, p := range h.pingers {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			slog.Warn("health.ping failed", slog.Any("err", err), slog.String("dep", name))
			ok = false
		}
	}

	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
	return ok
}

// Run опрашивает зависимости до отмены ctx, затем помечает сервис NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
