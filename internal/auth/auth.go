// Package auth identifies the signed-in worker from an HS256 bearer token,
// or falls back to a fixed development user when no secret is configured.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"workday/internal/core"
	"workday/internal/log"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the worker identity inside a token. The subject is the uid.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
	DevUser  core.User
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
	issuer string
	dev    core.User
	logger *log.Logger
	now    func() time.Time
}

func New(cfg Config, logger *log.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		dev:    cfg.DevUser,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
	}
}

// Enabled reports whether tokens are required.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Mint signs a token for user valid for the configured TTL.
func (a *Authenticator) Mint(user core.User) (string, error) {
	if !a.Enabled() {
		return "", errors.New("no signing secret configured")
	}
	if user.ID == "" {
		return "", errors.New("user id is required")
	}
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: user.Email,
		Name:  user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a signed token and returns the user it names.
func (a *Authenticator) Verify(tokenString string) (core.User, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return core.User{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return core.User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}, nil
}

// Authenticate resolves the user for a request.
func (a *Authenticator) Authenticate(r *http.Request) (core.User, error) {
	if !a.Enabled() {
		return a.dev, nil
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return core.User{}, ErrMissingToken
	}
	return a.Verify(strings.TrimSpace(token))
}

type ctxKey struct{}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user core.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (core.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(core.User)
	return user, ok
}

// Middleware rejects requests without a valid identity with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Authenticate(r)
		if err != nil {
			a.logger.WarnContext(r.Context(), "Rejected request",
				log.FieldPath, r.URL.Path,
				log.FieldError, err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="workday"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
