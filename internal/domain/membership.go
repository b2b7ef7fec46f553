package domain

import "time"

type Membership struct {
	RoomID   string    `db:"room_id"`
	UserID   UserID    `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

// MemberDetailed: участник комнаты вместе с публичными полями пользователя.
type MemberDetailed struct {
	UserID   UserID
	Name     string
	Email    string
	JoinedAt time.Time
}

// PrivateSessionEvent существует только на проводе и никогда не сохраняется.
type PrivateSessionEvent struct {
	RoomID  string
	Members []MemberDetailed
}
