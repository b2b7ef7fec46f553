package domain

import "time"

// Room: постоянная комната (ParentID == nil) или приватная сессия,
// вложенная в постоянную. ParentID задаётся один раз при создании.
type Room struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	ParentID  *string   `db:"parent_id"`
	CreatedBy UserID    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Room) IsPrivate() bool {
	return r.ParentID != nil
}

// RoomContext: комната и её родитель (один уровень).
type RoomContext struct {
	Room   *Room
	Parent *Room
}
