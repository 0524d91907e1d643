package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

const clockSkew = 30 * time.Second

type contextKey int

const actorKey contextKey = iota

// Claims are the bearer token claims the API understands. Tokens are issued
// elsewhere and signed with the shared HS256 secret.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type ProfileStore interface {
	Touch(ctx context.Context, a *actor.Actor) error
	Enrich(ctx context.Context, a *actor.Actor) (*actor.Actor, error)
}

type JWTAuth struct {
	secret   []byte
	parser   *jwt.Parser
	profiles ProfileStore
	skipAuth bool
	mockUser actor.Actor
	log      logger.Logger
}

func NewJWTAuth(cfg config.AuthConfig, profiles ProfileStore, log logger.Logger) *JWTAuth {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.JWTIssuer != "" {
		options = append(options, jwt.WithIssuer(cfg.JWTIssuer))
	}

	return &JWTAuth{
		secret:   []byte(cfg.JWTSecret),
		parser:   jwt.NewParser(options...),
		profiles: profiles,
		skipAuth: cfg.SkipAuth,
		mockUser: actor.Actor{
			ID:    strings.TrimSpace(cfg.MockUserID),
			Name:  strings.TrimSpace(cfg.MockUserName),
			Email: strings.TrimSpace(cfg.MockEmail),
			Role:  actor.ParseRole(cfg.MockRole),
		},
		log: log,
	}
}

// Middleware rejects requests without a valid bearer token.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return a.handler(next, true)
}

// Optional lets anonymous requests through but still rejects a malformed or
// expired token.
func (a *JWTAuth) Optional(next http.Handler) http.Handler {
	return a.handler(next, false)
}

func (a *JWTAuth) handler(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context(), a.log)

		if a.skipAuth {
			user := a.mockUser
			if user.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			a.touch(r.Context(), log, &user)
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), &user)))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}
		if len(a.secret) == 0 {
			writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			unauthorized(w, "invalid_token", "invalid token")
			return
		}

		user, err := a.verify(token)
		if err != nil {
			log.BusinessError("auth: token rejected", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(w, "token_expired", "token has expired")
				return
			}
			unauthorized(w, "invalid_token", "invalid token")
			return
		}

		enriched, err := a.enrich(r.Context(), user)
		if err != nil {
			log.InternalError("auth: load profile failed", err, "user_id", user.ID)
			enriched = user
		}
		a.touch(r.Context(), log, enriched)

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), enriched)))
	})
}

func (a *JWTAuth) verify(token string) (*actor.Actor, error) {
	var claims Claims
	parsed, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}

	return &actor.Actor{
		ID:    subject,
		Name:  strings.TrimSpace(claims.Name),
		Email: strings.TrimSpace(claims.Email),
		Role:  actor.ParseRole(claims.Role),
	}, nil
}

func (a *JWTAuth) enrich(ctx context.Context, user *actor.Actor) (*actor.Actor, error) {
	if a.profiles == nil {
		return user, nil
	}
	return a.profiles.Enrich(ctx, user)
}

func (a *JWTAuth) touch(ctx context.Context, log logger.Logger, user *actor.Actor) {
	if a.profiles == nil {
		return
	}
	if err := a.profiles.Touch(ctx, user); err != nil {
		log.InternalError("auth: upsert profile failed", err, "user_id", user.ID)
	}
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusUnauthorized, code, message)
}

func WithActor(ctx context.Context, a *actor.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (*actor.Actor, bool) {
	a, ok := ctx.Value(actorKey).(*actor.Actor)
	if !ok || !a.Authenticated() {
		return nil, false
	}
	return a, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"message": message,
	})
}
