package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

func statusFor(kind string) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyUsed, domain.KindConflict:
		return http.StatusConflict
	case domain.KindExpired:
		return http.StatusGone
	case domain.KindInvalidRole, domain.KindInvalidNesting:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError переводит ошибку сервиса в конверт {"error":{"message","kind"}}.
// Внутренние ошибки логируются, клиенту уходит обобщённое сообщение.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrInvalidCursor) {
		httputil.Error(w, http.StatusBadRequest, domain.KindInvalidInput, "invalid_cursor")
		return
	}
	kind := domain.Kind(err)
	if kind == domain.KindInternal {
		slog.ErrorContext(r.Context(), "handler."+op+" failed", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, kind, "internal error")
		return
	}
	httputil.Error(w, statusFor(kind), kind, err.Error())
}

func badRequest(w http.ResponseWriter, msg string) {
	httputil.Error(w, http.StatusBadRequest, domain.KindInvalidInput, msg)
}
