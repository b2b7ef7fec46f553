package http

import (
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// POST /rooms/{id}/private-sessions
func (h *Handler) StartPrivateSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil || req.TargetUserID <= 0 {
		badRequest(w, "target_user_id required")
		return
	}
	ev, err := h.sessions.StartPrivateSession(r.Context(), chi.URLParam(r, "id"),
		httpmw.UserIDFromCtx(r.Context()), domain.UserID(req.TargetUserID))
	if err != nil {
		writeError(w, r, "StartPrivateSession", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, sessionResponse(ev))
}

// PUT /me/presence
func (h *Handler) SetPresence(w http.ResponseWriter, r *http.Request) {
	var req PresenceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	status, err := domain.ParsePresence(req.Status)
	if err != nil {
		writeError(w, r, "SetPresence", err)
		return
	}
	uid := httpmw.UserIDFromCtx(r.Context())
	if err := h.presenceSvc.Set(r.Context(), uid, status); err != nil {
		writeError(w, r, "SetPresence", err)
		return
	}
	h.GetPresence(w, r)
}

// GET /me/presence
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	u, err := h.presenceSvc.Get(r.Context(), httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, "GetPresence", err)
		return
	}
	httputil.JSON(w, http.StatusOK, PresenceResponse{UserID: int64(u.ID), Status: string(u.Presence), LastSeen: u.LastSeen})
}
