package httpmw

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type LastSeenToucher interface {
	Touch(ctx context.Context, userID domain.UserID) error
}

// LastSeenMiddleware обновляет last_seen пользователя на каждый запрос.
func LastSeenMiddleware(t LastSeenToucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := UserIDFromCtx(r.Context()); userID != 0 {
				// best-effort: ошибки не прерывают запрос
				if err := t.Touch(r.Context(), userID); err != nil {
					slog.DebugContext(r.Context(), "last_seen touch failed", slog.Any("err", err), slog.Int64("user", int64(userID)))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
