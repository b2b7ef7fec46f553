package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type RoomItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomContextResponse struct {
	Room   RoomItem  `json:"room"`
	Parent *RoomItem `json:"parent"`
}

type RoomsListResponse struct {
	Items      []RoomItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type MemberItem struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

type MembersResponse struct {
	Items []MemberItem `json:"items"`
}

type ChatMessageItem struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	ReplyTo   *string   `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type IssueInvitationRequest struct {
	RoomID string `json:"room_id"`
	Role   string `json:"role"`
}

type InvitationItem struct {
	Token     string    `json:"token"`
	RoomID    string    `json:"room_id"`
	Role      string    `json:"role"`
	CreatorID int64     `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
}

type NameRef struct {
	Name string `json:"name"`
}

type InvitationDetailsResponse struct {
	InvitationItem
	Room    NameRef `json:"room"`
	Creator NameRef `json:"creator"`
}

type AcceptInvitationResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
}

type StartSessionRequest struct {
	TargetUserID int64 `json:"target_user_id"`
}

type SessionMemberItem struct {
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

type SessionResponse struct {
	ID      string              `json:"id"`
	Members []SessionMemberItem `json:"members"`
}

type PresenceRequest struct {
	Status string `json:"status"`
}

type PresenceResponse struct {
	UserID   int64     `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

func roomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:        r.ID,
		Name:      r.Name,
		ParentID:  r.ParentID,
		CreatedBy: int64(r.CreatedBy),
		CreatedAt: r.CreatedAt,
	}
}

func invitationItem(inv *domain.Invitation) InvitationItem {
	return InvitationItem{
		Token:     inv.Token,
		RoomID:    inv.RoomID,
		Role:      string(inv.Role),
		CreatorID: int64(inv.CreatorID),
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
		IsUsed:    inv.IsUsed,
	}
}

func sessionResponse(ev *domain.PrivateSessionEvent) SessionResponse {
	resp := SessionResponse{ID: ev.RoomID, Members: make([]SessionMemberItem, 0, len(ev.Members))}
	for _, m := range ev.Members {
		var it SessionMemberItem
		it.User.ID = int64(m.UserID)
		it.User.Name = m.Name
		it.User.Email = m.Email
		resp.Members = append(resp.Members, it)
	}
	return resp
}
