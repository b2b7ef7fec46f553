package ws

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// FanOut доставляет события всем соединениям пользователя на этом инстансе.
type FanOut struct {
	reg *Registry
}

func NewFanOut(reg *Registry) *FanOut {
	return &FanOut{reg: reg}
}

// Deliver ставит сообщение в очередь каждого соединения независимо.
// Полное или закрытое соединение пропускается, остальные получают.
func (f *FanOut) Deliver(userID domain.UserID, msg Message) int {
	conns := f.reg.ConnectionsFor(userID)
	if len(conns) == 0 {
		slog.Debug("fanout: user offline, dropped", "user", int64(userID), "type", msg.Type)
		return 0
	}

	delivered := 0
	for _, c := range conns {
		if !c.Enqueue(msg) {
			slog.Warn("fanout: connection skipped", "user", int64(userID), "conn", c.ID(), "type", msg.Type)
			continue
		}
		delivered++
	}
	return delivered
}

// NotifyUser: локальная доставка события о приватной сессии. Ошибок не бывает.
func (f *FanOut) NotifyUser(_ context.Context, userID domain.UserID, ev domain.PrivateSessionEvent) error {
	f.Deliver(userID, SessionStartedMessage(ev))
	return nil
}
