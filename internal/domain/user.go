package domain

import (
	"strings"
	"time"
)

type UserID int64

type Role string

const (
	RoleBase     Role = "BASE"
	RoleElevated Role = "ELEVATED"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleBase, RoleElevated, RoleAdmin:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

// Rank задаёт порядок BASE < ELEVATED < ADMIN; неизвестная роль ниже всех.
func (r Role) Rank() int {
	switch r {
	case RoleBase:
		return 1
	case RoleElevated:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

func MaxRole(a, b Role) Role {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type Presence string

const (
	PresenceOnline  Presence = "ONLINE"
	PresenceOffline Presence = "OFFLINE"
	PresenceDND     Presence = "DND"
)

func ParsePresence(s string) (Presence, error) {
	switch p := Presence(strings.ToUpper(strings.TrimSpace(s))); p {
	case PresenceOnline, PresenceOffline, PresenceDND:
		return p, nil
	default:
		return "", ErrInvalidInput
	}
}

// User: профиль, которым владеет внешний auth-слой; здесь меняются только роль и присутствие.
type User struct {
	ID       UserID    `db:"id"`
	Name     string    `db:"name"`
	Email    string    `db:"email"`
	Role     Role      `db:"role"`
	Presence Presence  `db:"presence"`
	LastSeen time.Time `db:"last_seen"`
}
