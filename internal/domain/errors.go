package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotInRoom          = errors.New("user not in the room")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("forbidden")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrAlreadyUsed        = errors.New("invitation already used")
	ErrExpired            = errors.New("invitation expired")
	ErrInvalidNesting     = errors.New("private session cannot be nested under a private session")
)

// Стабильные коды ошибок, которые видит клиент (HTTP, WS).
const (
	KindInvalidRole    = "InvalidRole"
	KindForbidden      = "Forbidden"
	KindNotFound       = "NotFound"
	KindAlreadyUsed    = "AlreadyUsed"
	KindExpired        = "Expired"
	KindInvalidNesting = "InvalidNesting"
	KindInvalidInput   = "InvalidInput"
	KindConflict       = "Conflict"
	KindInternal       = "Internal"
)

// Kind возвращает стабильный код для ошибки домена.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRole):
		return KindInvalidRole
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvitationNotFound),
		errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNotInRoom):
		return KindNotFound
	case errors.Is(err, ErrAlreadyUsed):
		return KindAlreadyUsed
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, ErrInvalidNesting):
		return KindInvalidNesting
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	default:
		return KindInternal
	}
}
