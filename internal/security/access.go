package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid subject")
)

// AccessVerifier проверяет access-токены, выпущенные внешним auth-сервисом (HS256).
// Сервис сам токены не выпускает.
type AccessVerifier struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

func NewAccessVerifier(secret, issuer string, clockSkew time.Duration) *AccessVerifier {
	return &AccessVerifier{
		secret:    []byte(secret),
		issuer:    issuer,
		clockSkew: clockSkew,
	}
}

// Verify возвращает userID из sub.
func (v *AccessVerifier) Verify(tokenStr string) (domain.UserID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.clockSkew),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return domain.UserID(id), nil
}

// SignAccessToken нужен dev-окружению и тестам; в проде токены выпускает auth-service.
func (v *AccessVerifier) SignAccessToken(userID domain.UserID, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
