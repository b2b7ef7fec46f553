package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/repository"

	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	q querier
}

func (r *ChatRepository) Save(ctx context.Context, roomID string, userID domain.UserID, text string, replyTo *string) (*domain.ChatMessage, error) {
	m, err := scanMessage(r.q.QueryRow(ctx, querySaveMessage, roomID, int64(userID), text, replyTo))
	if err != nil {
		return nil, mapPgError("chat.save", err, domain.ErrRoomNotFound)
	}
	return m, nil
}

// History возвращает историю сообщений комнаты с курсорной пагинацией (created_at,id DESC).
func (r *ChatRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	limit = repository.ClampLimit(limit, 50, 100)
	cur, err := repository.DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queryMessageHistory, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", mapPgError("chat.history", err, nil)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, "", mapPgError("chat.history", err, nil)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", mapPgError("chat.history", err, nil)
	}

	var next string
	if n := len(out); n > 0 {
		next = repository.NextCursor(n, limit, out[n-1].CreatedAt, out[n-1].ID)
	}
	return out, next, nil
}

func scanMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var (
		m   domain.ChatMessage
		uid int64
	)
	if err := row.Scan(&m.ID, &m.RoomID, &uid, &m.Text, &m.ReplyTo, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.UserID = domain.UserID(uid)
	return &m, nil
}
