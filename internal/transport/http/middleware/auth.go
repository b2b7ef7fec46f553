package httpmw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

type Mode string

const (
	// ModeJWT: проверка HS256 access-токена, subject = user id.
	ModeJWT Mode = "jwt"
	// ModeHeader (dev): требуем Bearer + X-User-ID, без валидации токена.
	ModeHeader Mode = "header"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}

type Authenticator struct {
	mode     Mode
	verifier TokenVerifier
}

func NewAuthenticator(mode Mode, verifier TokenVerifier) (*Authenticator, error) {
	switch mode {
	case ModeJWT:
		if verifier == nil {
			return nil, errors.New("jwt auth mode requires a verifier")
		}
	case ModeHeader:
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	return &Authenticator{mode: mode, verifier: verifier}, nil
}

// Authenticate достаёт пользователя из заголовков, а для websocket-апгрейда
// из query (access_token, user_id), потому что браузер не шлёт заголовки в WS.
func (a *Authenticator) Authenticate(r *http.Request) (domain.UserID, error) {
	q := r.URL.Query()

	token := bearer(r.Header.Get("Authorization"))
	if token == "" {
		token = strings.TrimSpace(q.Get("access_token"))
	}
	if token == "" {
		return 0, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	if a.mode == ModeJWT {
		uid, err := a.verifier.Verify(token)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return uid, nil
	}

	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		raw = q.Get("user_id")
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || uid <= 0 {
		return 0, fmt.Errorf("%w: invalid X-User-ID (must be int64)", ErrUnauthenticated)
	}
	return domain.UserID(uid), nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := a.Authenticate(r)
		if err != nil {
			httputil.Error(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

func bearer(h string) string {
	if len(h) <= 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func WithUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

func UserIDFromCtx(ctx context.Context) domain.UserID {
	if id, ok := ctx.Value(ctxKeyUserID).(domain.UserID); ok {
		return id
	}
	return 0
}
