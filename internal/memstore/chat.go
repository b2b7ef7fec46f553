package memstore

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"
)

type chatRepo repos

func (r chatRepo) Save(ctx context.Context, roomID string, userID domain.UserID, text string, replyTo *string) (*domain.ChatMessage, error) {
	var out domain.ChatMessage
	err := r.v.run(ctx, func(st *state) error {
		if _, ok := st.rooms[roomID]; !ok {
			return domain.ErrRoomNotFound
		}
		st.msgSeq++
		out = domain.ChatMessage{
			ID:        fmt.Sprintf("%020d", st.msgSeq),
			RoomID:    roomID,
			UserID:    userID,
			Text:      text,
			ReplyTo:   replyTo,
			CreatedAt: r.v.s.now(),
		}
		st.messages = append(st.messages, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History: от новых к старым, как в postgres-реализации.
func (r chatRepo) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	limit = repository.ClampLimit(limit, 50, 100)
	cur, err := repository.DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	var out []domain.ChatMessage
	err = r.v.run(ctx, func(st *state) error {
		for i := len(st.messages) - 1; i >= 0 && len(out) < limit; i-- {
			m := st.messages[i]
			if m.RoomID == roomID && cur.After(m.CreatedAt, m.ID) {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	var next string
	if n := len(out); n > 0 {
		next = repository.NextCursor(n, limit, out[n-1].CreatedAt, out[n-1].ID)
	}
	return out, next, nil
}
