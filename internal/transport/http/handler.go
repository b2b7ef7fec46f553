package http

import (
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc       *service.RoomService
	memberSvc     *service.MemberService
	chatSvc       *service.ChatService
	invitationSvc *service.InvitationService
	sessions      service.Spawner
	presenceSvc   *service.PresenceService
	groups        GroupEvictor
}

// GroupEvictor: живые ws-группы, которые надо закрыть после потери членства.
type GroupEvictor interface {
	EvictUser(userID domain.UserID, roomID string) int
	EvictRoom(roomID string) int
}

type Services struct {
	Rooms       *service.RoomService
	Members     *service.MemberService
	Chat        *service.ChatService
	Invitations *service.InvitationService
	Sessions    service.Spawner
	Presence    *service.PresenceService
	Groups      GroupEvictor // nil: без ws
}

func NewHandler(s Services) *Handler {
	return &Handler{
		roomSvc:       s.Rooms,
		memberSvc:     s.Members,
		chatSvc:       s.Chat,
		invitationSvc: s.Invitations,
		sessions:      s.Sessions,
		presenceSvc:   s.Presence,
		groups:        s.Groups,
	}
}

func queryInt(r *http.Request, key string) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	room, err := h.roomSvc.CreateStanding(r.Context(), req.Name, httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, "CreateRoom", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, roomItem(room))
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, next, err := h.roomSvc.ListRooms(r.Context(), queryInt(r, "limit"), r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, "ListRooms", err)
		return
	}
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms)), NextCursor: next}
	for i := range rooms {
		resp.Items = append(resp.Items, roomItem(&rooms[i]))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}: комната вместе с родителем
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	rc, err := h.roomSvc.ResolveContext(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "GetRoom", err)
		return
	}
	resp := RoomContextResponse{Room: roomItem(rc.Room)}
	if rc.Parent != nil {
		p := roomItem(rc.Parent)
		resp.Parent = &p
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// DELETE /rooms/{id}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if err := h.roomSvc.DeleteRoom(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context())); err != nil {
		writeError(w, r, "DeleteRoom", err)
		return
	}
	if h.groups != nil {
		h.groups.EvictRoom(roomID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /rooms/{id}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if err := h.memberSvc.JoinStanding(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context())); err != nil {
		writeError(w, r, "JoinRoom", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"room_id": roomID, "status": "joined"})
}

// POST /rooms/{id}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID, userID := chi.URLParam(r, "id"), httpmw.UserIDFromCtx(r.Context())
	if err := h.memberSvc.Leave(r.Context(), roomID, userID); err != nil {
		writeError(w, r, "LeaveRoom", err)
		return
	}
	if h.groups != nil {
		h.groups.EvictUser(userID, roomID)
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// GET /rooms/{id}/members
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	items, err := h.memberSvc.ListMembersForRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "GetMembers", err)
		return
	}
	resp := MembersResponse{Items: make([]MemberItem, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, MemberItem{
			UserID:   int64(it.UserID),
			Name:     it.Name,
			Email:    it.Email,
			JoinedAt: it.JoinedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}/chat?after=&limit=: только для участников
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	ok, err := h.memberSvc.IsMember(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, "GetChatHistory", err)
		return
	}
	if !ok {
		httputil.Error(w, http.StatusForbidden, domain.KindForbidden, "not a member of the room")
		return
	}

	items, next, err := h.chatSvc.History(r.Context(), roomID, r.URL.Query().Get("after"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, "GetChatHistory", err)
		return
	}
	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, ChatMessageItem{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    int64(m.UserID),
			Text:      m.Text,
			ReplyTo:   m.ReplyTo,
			CreatedAt: m.CreatedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GET /me/rooms
func (h *Handler) MyRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.memberSvc.ListRoomsForUser(r.Context(), httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, "MyRooms", err)
		return
	}
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for i := range rooms {
		resp.Items = append(resp.Items, roomItem(&rooms[i]))
	}
	httputil.JSON(w, http.StatusOK, resp)
}
