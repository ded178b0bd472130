package adminauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barbershop/libs/auth"
	"github.com/md-rashed-zaman/barbershop/libs/metrics"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const DefaultTTL = 12 * time.Hour

type Config struct {
	Username string
	Password string
	Secret   string
	TTL      time.Duration
	Now      func() time.Time
}

// Authenticator checks the single operator credential pair and issues
// short-lived admin session tokens.
type Authenticator struct {
	username string
	hash     []byte
	secret   string
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.BookingMetrics
}

func New(cfg Config, m *metrics.BookingMetrics) (*Authenticator, error) {
	username := strings.TrimSpace(cfg.Username)
	password := strings.TrimSpace(cfg.Password)
	if username == "" || password == "" {
		return nil, errors.New("admin username and password are required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("admin token secret is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		username: username,
		hash:     hash,
		secret:   cfg.Secret,
		ttl:      ttl,
		now:      now,
		metrics:  m,
	}, nil
}

// Login returns a signed token for a matching username and password. Inputs
// are trimmed; an empty field never matches.
func (a *Authenticator) Login(username, password string) (string, auth.Claims, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	// bcrypt runs even for an unknown user so both failures take the same time.
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	if username == "" || password == "" || !userOK || !passOK {
		a.metrics.ObserveLogin(false)
		return "", auth.Claims{}, ErrInvalidCredentials
	}

	claims := auth.NewClaims(a.username, auth.RoleAdmin, a.now(), a.ttl)
	token, err := auth.SignHS256(claims, a.secret)
	if err != nil {
		return "", auth.Claims{}, err
	}
	a.metrics.ObserveLogin(true)
	return token, claims, nil
}

func (a *Authenticator) Verify(token string) (*auth.Claims, error) {
	return auth.ParseAndVerifyHS256(token, a.secret, a.now())
}

type ctxKey struct{}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return c, ok
}

// RequireAdmin rejects requests without a valid bearer token (401) or whose
// token carries a role other than admin (403).
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := a.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}
