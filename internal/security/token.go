package security

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// InvitationTokenBytes: 32 байта энтропии, в hex это 64 символа.
const InvitationTokenBytes = 32

// RandomBytes генерирует криптостойкие байты.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	return b, err
}

// NewInvitationToken выдаёт непредсказуемый токен приглашения.
// Уникальность дополнительно гарантирует первичный ключ в хранилище.
func NewInvitationToken() (string, error) {
	b, err := RandomBytes(InvitationTokenBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
