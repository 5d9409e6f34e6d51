package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/core"
	"workday/internal/log"
)

const secret = "0123456789abcdef0123"

func newAuth(now time.Time) *Authenticator {
	a := New(Config{Secret: secret, TokenTTL: time.Hour, Issuer: "workday"}, log.Discard())
	a.now = func() time.Time { return now }
	return a
}

func TestMintVerifyRoundTrip(t *testing.T) {
	now := time.Now()
	a := newAuth(now)
	user := core.User{ID: "uid-1", Email: "a@example.com", DisplayName: "Ana"}

	token, err := a.Mint(user)
	require.NoError(t, err)

	got, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	a := newAuth(now)
	valid, err := a.Mint(core.User{ID: "uid-1"})
	require.NoError(t, err)

	expired, err := newAuth(now.Add(-2 * time.Hour)).Mint(core.User{ID: "uid-1"})
	require.NoError(t, err)

	other := New(Config{Secret: "another-secret-value", TokenTTL: time.Hour, Issuer: "workday"}, log.Discard())
	forged, err := other.Mint(core.User{ID: "uid-1"})
	require.NoError(t, err)

	wrongIssuer, err := New(Config{Secret: secret, TokenTTL: time.Hour, Issuer: "elsewhere"}, log.Discard()).Mint(core.User{ID: "uid-1"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", forged},
		{"wrong issuer", wrongIssuer},
		{"alg none", none},
		{"garbage", "not.a.token"},
		{"tampered", valid + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMintRequiresSecretAndID(t *testing.T) {
	_, err := New(Config{}, log.Discard()).Mint(core.User{ID: "u"})
	assert.Error(t, err)
	_, err = newAuth(time.Now()).Mint(core.User{})
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	a := newAuth(time.Now())
	token, err := a.Mint(core.User{ID: "uid-1"})
	require.NoError(t, err)

	var seen core.User
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "uid-1", seen.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDevUserFallback(t *testing.T) {
	dev := core.User{ID: "dev-user", Email: "dev@localhost", DisplayName: "Dev"}
	a := New(Config{DevUser: dev}, log.Discard())
	assert.False(t, a.Enabled())

	user, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, dev, user)
}
