package ws

import (
	"encoding/json"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Типы событий клиент -> сервер
const (
	TypeJoinRoom            = "joinRoom"
	TypeLeaveRoom           = "leaveRoom"
	TypeStartPrivateSession = "startPrivateSession"
	TypeChat                = "chat" // в обе стороны: от клиента запрос, от сервера broadcast в комнату
	TypeSetPresence         = "setPresence"
)

// Типы событий сервер -> клиент
const (
	TypeJoinedRoom            = "joinedRoom"
	TypeLeftRoom              = "leftRoom"
	TypePrivateSessionStarted = "privateSessionStarted" // push приглашённому
	TypePrivateSessionCreated = "privateSessionCreated" // ack инициатору
	TypeChatAck               = "chatAck"               // подтверждение отправки (НЕ сообщение)
	TypePresenceSet           = "presenceSet"
	TypeError                 = "error"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// inbound: входящий кадр; payload разбирается по типу.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type RoomRequest struct {
	RoomID string `json:"room_id"`
}

type StartSessionRequest struct {
	ParentRoomID string `json:"parent_room_id"`
	TargetUserID int64  `json:"target_user_id"`
}

type ChatRequest struct {
	RoomID  string  `json:"room_id"`
	Message string  `json:"message"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

type PresenceRequest struct {
	Status string `json:"status"`
}

type RoomPayload struct {
	RoomID string `json:"room_id"`
}

type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SessionMember struct {
	User UserRef `json:"user"`
}

// SessionPayload: событие о приватной сессии в формате для клиента.
type SessionPayload struct {
	ID      string          `json:"id"`
	Members []SessionMember `json:"members"`
}

type ChatPayload struct {
	RoomID  string  `json:"room_id"`
	UserID  int64   `json:"user_id"`
	Message string  `json:"message"`
	ReplyTo *string `json:"reply_to,omitempty"`

	MsgID  string `json:"msg_id,omitempty"`
	TSUnix int64  `json:"ts_unix,omitempty"`
}

// для client: использует для снятия pending и дедупликации;
type ChatAckPayload struct {
	MsgID string `json:"msg_id"`
}

type PresencePayload struct {
	Status string `json:"status"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

func sessionPayload(ev domain.PrivateSessionEvent) SessionPayload {
	members := make([]SessionMember, 0, len(ev.Members))
	for _, m := range ev.Members {
		members = append(members, SessionMember{User: UserRef{ID: int64(m.UserID), Name: m.Name, Email: m.Email}})
	}
	return SessionPayload{ID: ev.RoomID, Members: members}
}

// SessionStartedMessage: push-событие для приглашённого пользователя.
func SessionStartedMessage(ev domain.PrivateSessionEvent) Message {
	return Message{Type: TypePrivateSessionStarted, Payload: sessionPayload(ev)}
}

func leftRoomMessage(roomID string) Message {
	return Message{Type: TypeLeftRoom, Payload: RoomPayload{RoomID: roomID}}
}

func chatMessage(m *domain.ChatMessage) Message {
	return Message{Type: TypeChat, Payload: ChatPayload{
		RoomID:  m.RoomID,
		UserID:  int64(m.UserID),
		Message: m.Text,
		ReplyTo: m.ReplyTo,
		MsgID:   m.ID,
		TSUnix:  m.CreatedAt.Unix(),
	}}
}

func errorMessage(err error, request string) Message {
	kind := domain.Kind(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	return Message{Type: TypeError, Payload: ErrorPayload{Kind: kind, Message: msg, Request: request}}
}
