// Package redisbus разносит события о приватных сессиях между инстансами
// через Redis Pub/Sub. Каждый инстанс подписан на <prefix>user:* и
// доставляет полученное своим локальным соединениям.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/go-redis/redis/v8"
)

// LocalNotifier: доставка на соединения текущего инстанса (ws.FanOut).
type LocalNotifier interface {
	NotifyUser(ctx context.Context, userID domain.UserID, ev domain.PrivateSessionEvent) error
}

type wireMember struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

type wireEvent struct {
	Origin  string       `json:"origin"`
	RoomID  string       `json:"room_id"`
	Members []wireMember `json:"members"`
}

type Bus struct {
	client   redis.UniversalClient
	prefix   string
	instance string
	local    LocalNotifier

	publishTimeout time.Duration
	ready          chan struct{}
}

func New(client redis.UniversalClient, prefix, instance string, local LocalNotifier) *Bus {
	return &Bus{
		client:         client,
		prefix:         prefix,
		instance:       instance,
		local:          local,
		publishTimeout: 2 * time.Second,
		ready:          make(chan struct{}),
	}
}

func (b *Bus) channel(userID domain.UserID) string {
	return b.prefix + "user:" + strconv.FormatInt(int64(userID), 10)
}

// Ready закрывается, когда подписка подтверждена сервером.
func (b *Bus) Ready() <-chan struct{} { return b.ready }

// NotifyUser публикует событие; при сбое Redis доставляет локально.
// Ошибку наружу не возвращает: доставка best-effort.
func (b *Bus) NotifyUser(ctx context.Context, userID domain.UserID, ev domain.PrivateSessionEvent) error {
	we := wireEvent{Origin: b.instance, RoomID: ev.RoomID, Members: make([]wireMember, 0, len(ev.Members))}
	for _, m := range ev.Members {
		we.Members = append(we.Members, wireMember{UserID: int64(m.UserID), Name: m.Name, Email: m.Email, JoinedAt: m.JoinedAt})
	}
	payload, err := json.Marshal(we)
	if err != nil {
		slog.Error("redisbus.marshal failed", slog.Any("err", err))
		return b.local.NotifyUser(ctx, userID, ev)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.publishTimeout)
	defer cancel()
	cmd := b.client.Publish(pubCtx, b.channel(userID), payload)
	if err := cmd.Err(); err != nil {
		slog.Warn("redisbus.publish failed, local delivery", slog.Any("err", err), slog.Int64("user", int64(userID)))
		return b.local.NotifyUser(ctx, userID, ev)
	}
	slog.Debug("redisbus published", "channel", b.channel(userID), "subscribers", cmd.Val())
	return nil
}

// Run держит подписку до отмены ctx.
func (b *Bus) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"user:*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redisbus subscribe: %w", err)
	}
	close(b.ready)
	slog.Info("redisbus subscribed", "pattern", b.prefix+"user:*", "instance", b.instance)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *Bus) handle(ctx context.Context, msg *redis.Message) {
	idStr := strings.TrimPrefix(msg.Channel, b.prefix+"user:")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		slog.Warn("redisbus: bad channel", "channel", msg.Channel)
		return
	}
	var we wireEvent
	if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
		slog.Warn("redisbus: bad payload", slog.Any("err", err), slog.String("channel", msg.Channel))
		return
	}

	ev := domain.PrivateSessionEvent{RoomID: we.RoomID, Members: make([]domain.MemberDetailed, 0, len(we.Members))}
	for _, m := range we.Members {
		ev.Members = append(ev.Members, domain.MemberDetailed{UserID: domain.UserID(m.UserID), Name: m.Name, Email: m.Email, JoinedAt: m.JoinedAt})
	}
	if err := b.local.NotifyUser(ctx, domain.UserID(id), ev); err != nil {
		slog.Warn("redisbus: local delivery failed", slog.Any("err", err), slog.Int64("user", id))
	}
}
