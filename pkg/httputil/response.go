package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// Error: унифицированная ошибка: {"error":{"message","kind"}}.
func Error(w http.ResponseWriter, status int, kind, msg string) {
	JSON(w, status, envelope{
		"error": envelope{
			"message": msg,
			"kind":    kind,
		},
	})
}

// DecodeJSON читает тело запроса, ограничивая размер; лишние поля: ошибка.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
