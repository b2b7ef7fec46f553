package httpmw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(string) (domain.UserID, error)

func (f verifierFunc) Verify(tok string) (domain.UserID, error) { return f(tok) }

func TestAuthenticator_HeaderMode(t *testing.T) {
	a, err := NewAuthenticator(ModeHeader, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("Authorization", "Bearer t")
	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("X-User-ID", "42")
	uid, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(42), uid)

	ws := httptest.NewRequest(http.MethodGet, "/ws?access_token=t&user_id=7", nil)
	uid, err = a.Authenticate(ws)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(7), uid)
}

func TestAuthenticator_JWTMode(t *testing.T) {
	_, err := NewAuthenticator(ModeJWT, nil)
	require.Error(t, err)
	_, err = NewAuthenticator("magic", nil)
	require.Error(t, err)

	a, err := NewAuthenticator(ModeJWT, verifierFunc(func(tok string) (domain.UserID, error) {
		if tok == "good" {
			return 5, nil
		}
		return 0, errors.New("bad token")
	}))
	require.NoError(t, err)

	var got domain.UserID
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.UserID(5), got)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"Unauthenticated"`)

	uid, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/ws?access_token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(5), uid)
}
