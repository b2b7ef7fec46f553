package http

import (
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// POST /invitations
func (h *Handler) IssueInvitation(w http.ResponseWriter, r *http.Request) {
	var req IssueInvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.RoomID == "" {
		badRequest(w, "room_id required")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, "IssueInvitation", err)
		return
	}

	inv, err := h.invitationSvc.Issue(r.Context(), req.RoomID, httpmw.UserIDFromCtx(r.Context()), role)
	if err != nil {
		writeError(w, r, "IssueInvitation", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, invitationItem(inv))
}

// GET /invitations/{token}: публичный
func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitationSvc.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, "GetInvitation", err)
		return
	}
	httputil.JSON(w, http.StatusOK, InvitationDetailsResponse{
		InvitationItem: invitationItem(&inv.Invitation),
		Room:           NameRef{Name: inv.RoomName},
		Creator:        NameRef{Name: inv.CreatorName},
	})
}

// POST /invitations/{token}/accept
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	res, err := h.invitationSvc.Accept(r.Context(), chi.URLParam(r, "token"), httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, "AcceptInvitation", err)
		return
	}
	httputil.JSON(w, http.StatusOK, AcceptInvitationResponse{Success: res.Success, RoomID: res.RoomID})
}
