package http

import (
	"context"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterDeps struct {
	Handler     *Handler
	Auth        *httpmw.Authenticator
	LastSeen    httpmw.LastSeenToucher
	WS          http.HandlerFunc
	Ping        func(ctx context.Context) error
	CORSOrigins []string
	Timeout     time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	h := d.Handler

	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// WS endpoint: авторизация внутри, по query
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			if err := d.Ping(r.Context()); err != nil {
				httputil.Error(w, http.StatusServiceUnavailable, "Unavailable", "storage unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// публичное чтение приглашения по ссылке
	r.Get("/invitations/{token}", h.GetInvitation)

	r.Group(func(pr chi.Router) {
		pr.Use(d.Auth.Middleware)
		if d.LastSeen != nil {
			pr.Use(httpmw.LastSeenMiddleware(d.LastSeen))
		}
		pr.Use(middlewareChi.Timeout(d.Timeout))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Delete("/", h.DeleteRoom)
				rr.Post("/join", h.JoinRoom)
				rr.Post("/leave", h.LeaveRoom)
				rr.Get("/members", h.GetMembers)
				rr.Get("/chat", h.GetChatHistory)
				rr.Post("/private-sessions", h.StartPrivateSession)
			})
		})

		pr.Route("/me", func(me chi.Router) {
			me.Get("/rooms", h.MyRooms)
			me.Get("/presence", h.GetPresence)
			me.Put("/presence", h.SetPresence)
		})

		pr.Post("/invitations", h.IssueInvitation)
		pr.Post("/invitations/{token}/accept", h.AcceptInvitation)
	})

	return r
}
