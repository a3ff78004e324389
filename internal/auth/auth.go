// Package auth gates the knowledge base behind sessions issued by the Todd
// account service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie set by the account service.
const CookieName = "todd_session"

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
)

type contextKey string

const contextKeyIdentity contextKey = "identity"

// Identity is the authenticated user of a request.
type Identity struct {
	Subject  string `json:"sub"`
	Email    string `json:"email,omitempty"`
	Approved bool   `json:"approved"`
}

// DevIdentity is installed on every request when auth is disabled.
var DevIdentity = Identity{Subject: "dev", Email: "dev@localhost", Approved: true}

type claims struct {
	Email    string `json:"email,omitempty"`
	Approved bool   `json:"approved"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for tokens signed with secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates token, returning its identity.
func (v *Verifier) Verify(token string) (*Identity, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Identity{Subject: c.Subject, Email: c.Email, Approved: c.Approved}, nil
}

// Issue signs a token for id valid for ttl. Used by the CLI for local testing.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email:    id.Email,
		Approved: id.Approved,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// FromContext returns the request identity, or nil if there is none.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(contextKeyIdentity).(*Identity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

// Middleware attaches the identity from the bearer token or session cookie.
// Requests without a valid token pass through anonymously; gating is left to
// RequireApproved. A nil verifier installs DevIdentity on every request.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				dev := DevIdentity
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &dev)))
				return
			}

			token, err := tokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id, err := v.Verify(token)
			if err != nil {
				logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireApproved answers 404 unless the request carries an approved identity,
// so unapproved users cannot tell the knowledge base exists.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if id == nil || !id.Approved {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			return token, nil
		}
		return "", ErrInvalidToken
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrNoToken
}
