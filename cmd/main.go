package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"
	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/redisbus"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/internal/worker"
	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml (default: $CONFIG_PATH or ./config/config.yaml)")
	pflag.Parse()

	// --- config ---
	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logging.level: %v", err)
	}
	instanceID := uuid.NewString()
	lg := logger.Init(logger.Config{
		Env:        logger.ParseEnv(cfg.Logging.Env),
		Service:    cfg.Logging.Service,
		Version:    cfg.Logging.Version,
		InstanceID: instanceID,
		Backend:    logger.Backend(cfg.Logging.Backend),
		Level:      level,
		AddSource:  cfg.Logging.AddSource,
		Debug:      cfg.Logging.Debug,
	})
	defer func() { _ = logger.Sync() }()
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- storage ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	policy, err := service.ParseRolePolicy(cfg.Invitations.RolePolicy)
	if err != nil {
		log.Fatalf("invitations.rolePolicy: %v", err)
	}

	// --- services ---
	roomSvc := service.NewRoomService(store)
	memberSvc := service.NewMemberService(store)
	chatSvc := service.NewChatService(store, cfg.Chat.MaxMessageLen)
	presenceSvc := service.NewPresenceService(store, time.Now)
	invitationSvc := service.NewInvitationService(store, service.InvitationOptions{
		TTL:        cfg.Invitations.TTL,
		RolePolicy: policy,
	})

	// --- WS registry & fan-out ---
	registry := ws.NewRegistry(memberSvc, cfg.WS.RegistryShard)
	fanout := ws.NewFanOut(registry)

	var notifier service.Notifier = fanout
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		bus := redisbus.New(rdb, cfg.Redis.Prefix, instanceID, fanout)
		notifier = bus
		go func() {
			if err := bus.Run(ctx); err != nil {
				slog.Error("redisbus stopped", slog.Any("err", err))
			}
		}()
	}

	var sessions service.Spawner = service.NewSessionService(store, notifier)
	if cfg.Sessions.Dedupe {
		sessions = service.NewDedupSpawner(sessions)
	}

	// --- auth ---
	var verifier httpmw.TokenVerifier
	if cfg.Auth.Mode == string(httpmw.ModeJWT) {
		verifier = security.NewAccessVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.ClockSkew)
	}
	auth, err := httpmw.NewAuthenticator(httpmw.Mode(cfg.Auth.Mode), verifier)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	wsServer := ws.NewServer(registry, auth, sessions, chatSvc, presenceSvc, ws.Options{
		PingEvery:    cfg.WS.PingEvery,
		WriteTimeout: cfg.WS.WriteTimeout,
		SendBuffer:   cfg.WS.SendBuffer,
	})

	// --- HTTP ---
	handler := httpx.NewHandler(httpx.Services{
		Rooms:       roomSvc,
		Members:     memberSvc,
		Chat:        chatSvc,
		Invitations: invitationSvc,
		Sessions:    sessions,
		Presence:    presenceSvc,
		Groups:      registry,
	})
	router := httpx.NewRouter(httpx.RouterDeps{
		Handler:     handler,
		Auth:        auth,
		LastSeen:    presenceSvc,
		WS:          wsServer.HandleWS,
		Ping:        store.Ping,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Timeout:     cfg.HTTP.RequestTimeout,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// --- gRPC (health) ---
	grpcServer := grpcx.NewServer(cfg.GRPC.CallTimeout)
	pingers := map[string]grpcx.Pinger{"storage": store}
	if rdb != nil {
		pingers["redis"] = redisPinger{rdb}
	}
	healthReporter := grpcx.NewHealthReporter(cfg.GRPC.HealthEvery, pingers)
	healthReporter.Register(grpcServer)
	go healthReporter.Run(ctx)

	// --- background sweep ---
	var bg *worker.Worker
	if cfg.Redis.Addr != "" {
		bg = worker.New(worker.Config{
			Redis: asynq.RedisClientOpt{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			},
			SweepEvery: cfg.Invitations.SweepEvery,
			Retention:  cfg.Invitations.Retention,
		}, invitationSvc, lg)
		if err := bg.Start(); err != nil {
			log.Fatalf("worker: %v", err)
		}
	} else {
		go sweepLoop(ctx, invitationSvc, cfg.Invitations.SweepEvery, cfg.Invitations.Retention)
	}

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	stop()
	if bg != nil {
		bg.Shutdown()
	}
	grpcServer.GracefulStop()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

// sweepLoop: чистка приглашений без Redis, в процессе.
func sweepLoop(ctx context.Context, s *service.InvitationService, every, retention time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, retention)
			if err != nil {
				slog.Warn("invitation sweep failed", slog.Any("err", err))
				continue
			}
			slog.Debug("invitation sweep", "deleted", n)
		}
	}
}
