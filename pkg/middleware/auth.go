package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

type contextKey string

const actorKey contextKey = "marketplace.actor"

// Authenticator resolves the calling address from an HS256 bearer token. The
// address is the token's subject.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

func NewAuthenticator(secret, issuer string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: issuer,
		leeway: 2 * time.Minute,
		logger: logger,
	}
}

// Middleware rejects requests without a valid token. Requests that carry no
// Authorization header are passed through anonymously when optional is set.
func (a *Authenticator) Middleware(optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r.Header.Get("Authorization"))
			if raw == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				unauthenticated(w, "missing bearer token")
				return
			}
			actor, err := a.Verify(raw)
			if err != nil {
				a.logger.Warn("rejected bearer token", "path", r.URL.Path, "error", err)
				unauthenticated(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// Verify checks the token and returns its normalized subject address.
func (a *Authenticator) Verify(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return "", err
	}
	actor, err := models.NormalizeAddress(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("subject: %w", err)
	}
	return actor, nil
}

// Issue signs a token for subject. It backs local tooling and tests.
func (a *Authenticator) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey).(string)
	return actor, ok && actor != ""
}

func extractBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="marketplace"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": "Unauthenticated"})
}
