package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(r *http.Request) (domain.UserID, error)
}

type SessionStarter interface {
	StartPrivateSession(ctx context.Context, parentID string, initiatorID, targetID domain.UserID) (*domain.PrivateSessionEvent, error)
}

type ChatSvc interface {
	Save(ctx context.Context, roomID string, userID domain.UserID, text string, replyTo *string) (*domain.ChatMessage, error)
}

type PresenceSvc interface {
	Connected(ctx context.Context, userID domain.UserID) error
	Disconnected(ctx context.Context, userID domain.UserID) error
	Set(ctx context.Context, userID domain.UserID, p domain.Presence) error
	Touch(ctx context.Context, userID domain.UserID) error
}

type Options struct {
	PingEvery    time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	ReadLimit    int64
}

func (o *Options) defaults() {
	if o.PingEvery <= 0 {
		o.PingEvery = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
}

type Server struct {
	upgrader websocket.Upgrader
	opts     Options

	auth     Authenticator
	registry *Registry
	sessions SessionStarter
	chat     ChatSvc
	presence PresenceSvc
}

func NewServer(reg *Registry, auth Authenticator, sessions SessionStarter, chat ChatSvc, presence PresenceSvc, opts Options) *Server {
	opts.defaults()
	return &Server{
		registry: reg,
		auth:     auth,
		sessions: sessions,
		chat:     chat,
		presence: presence,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WS endpoint: GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	uid, err := s.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, uid, s.opts.SendBuffer)
	if first := s.registry.Register(c); first {
		s.presenceHook(r.Context(), uid, s.presence.Connected)
	}
	slog.DebugContext(r.Context(), "ws connected", "conn", c.id, "user", int64(uid))

	go c.writeLoop(s.opts.PingEvery, s.opts.WriteTimeout)
	s.readLoop(r.Context(), c)

	_, last := s.registry.Disconnect(c.id)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.id, "user", int64(uid), "err", err)
	}
	if last {
		s.presenceHook(r.Context(), uid, s.presence.Disconnected)
	}
	slog.DebugContext(r.Context(), "ws disconnected", "conn", c.id, "user", int64(uid), "last", last)
}

func (s *Server) presenceHook(ctx context.Context, uid domain.UserID, fn func(context.Context, domain.UserID) error) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := fn(ctx, uid); err != nil {
		slog.WarnContext(ctx, "ws presence hook failed", "user", int64(uid), "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
		if s.presence != nil {
			_ = s.presence.Touch(ctx, c.userID)
		}
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.Enqueue(errorMessage(fmt.Errorf("%w: malformed frame", domain.ErrInvalidInput), ""))
			continue
		}
		s.dispatch(ctx, c, in)
	}
}

// dispatch обрабатывает один входящий кадр. Ответы уходят только в очередь
// этого соединения; broadcast и push идут через реестр.
func (s *Server) dispatch(ctx context.Context, c Conn, in inbound) {
	if err := s.handle(ctx, c, in); err != nil {
		if errors.Is(err, ErrConnectionNotFound) {
			return
		}
		if domain.Kind(err) == domain.KindInternal {
			slog.ErrorContext(ctx, "ws.dispatch failed", slog.Any("err", err), slog.String("type", in.Type), slog.Int64("user", int64(c.UserID())))
		}
		c.Enqueue(errorMessage(err, in.Type))
	}
}

func (s *Server) handle(ctx context.Context, c Conn, in inbound) error {
	switch in.Type {
	case TypeJoinRoom:
		var p RoomRequest
		if err := decode(in.Payload, &p); err != nil || p.RoomID == "" {
			return fmt.Errorf("%w: room_id required", domain.ErrInvalidInput)
		}
		ack, err := s.registry.Join(ctx, c.ID(), p.RoomID)
		if err != nil {
			return err
		}
		c.Enqueue(ack)

	case TypeLeaveRoom:
		var p RoomRequest
		if err := decode(in.Payload, &p); err != nil || p.RoomID == "" {
			return fmt.Errorf("%w: room_id required", domain.ErrInvalidInput)
		}
		s.registry.Leave(c.ID(), p.RoomID)
		c.Enqueue(leftRoomMessage(p.RoomID))

	case TypeStartPrivateSession:
		var p StartSessionRequest
		if err := decode(in.Payload, &p); err != nil || p.ParentRoomID == "" || p.TargetUserID <= 0 {
			return fmt.Errorf("%w: parent_room_id and target_user_id required", domain.ErrInvalidInput)
		}
		ev, err := s.sessions.StartPrivateSession(ctx, p.ParentRoomID, c.UserID(), domain.UserID(p.TargetUserID))
		if err != nil {
			return err
		}
		c.Enqueue(Message{Type: TypePrivateSessionCreated, Payload: sessionPayload(*ev)})

	case TypeChat:
		var p ChatRequest
		if err := decode(in.Payload, &p); err != nil || p.RoomID == "" {
			return fmt.Errorf("%w: room_id required", domain.ErrInvalidInput)
		}
		if !s.registry.InGroup(c.ID(), p.RoomID) {
			return domain.ErrForbidden
		}
		msg, err := s.chat.Save(ctx, p.RoomID, c.UserID(), p.Message, p.ReplyTo)
		if err != nil {
			return err
		}
		// один broadcast на всю группу, включая отправителя, плюс лёгкий ack
		s.registry.Broadcast(p.RoomID, chatMessage(msg))
		c.Enqueue(Message{Type: TypeChatAck, Payload: ChatAckPayload{MsgID: msg.ID}})

	case TypeSetPresence:
		var p PresenceRequest
		if err := decode(in.Payload, &p); err != nil {
			return fmt.Errorf("%w: status required", domain.ErrInvalidInput)
		}
		status, err := domain.ParsePresence(p.Status)
		if err != nil {
			return err
		}
		if err := s.presence.Set(ctx, c.UserID(), status); err != nil {
			return err
		}
		c.Enqueue(Message{Type: TypePresenceSet, Payload: PresencePayload{Status: string(status)}})

	default:
		return fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidInput, in.Type)
	}
	return nil
}

// --- helpers ---

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(raw, dst)
}
