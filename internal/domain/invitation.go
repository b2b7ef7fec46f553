package domain

import "time"

const InvitationTTL = 24 * time.Hour

// Invitation: одноразовый токен на вступление в комнату с ролью.
// IsUsed переходит false -> true ровно один раз.
type Invitation struct {
	Token     string    `db:"token"`
	RoomID    string    `db:"room_id"`
	Role      Role      `db:"role"`
	CreatorID UserID    `db:"creator_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	IsUsed    bool      `db:"is_used"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type InvitationDetails struct {
	Invitation
	RoomName    string
	CreatorName string
}
