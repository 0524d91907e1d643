package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "middleware-secret"

type fakeProfiles struct {
	touched []string
	name    string
	fail    bool
}

func (p *fakeProfiles) Touch(ctx context.Context, a *actor.Actor) error {
	p.touched = append(p.touched, a.ID)
	return nil
}

func (p *fakeProfiles) Enrich(ctx context.Context, a *actor.Actor) (*actor.Actor, error) {
	if p.fail {
		return nil, errors.New("db down")
	}
	enriched := *a
	if enriched.Name == "" {
		enriched.Name = p.name
	}
	return &enriched, nil
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func claimsFor(subject, role string, expires time.Time) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "church-auth",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func serve(auth *JWTAuth, header string) (*httptest.ResponseRecorder, *actor.Actor) {
	var seen *actor.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	auth.Middleware(inner).ServeHTTP(rec, req)
	return rec, seen
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body.Error.Code
}

func newAuth(profiles ProfileStore) *JWTAuth {
	return NewJWTAuth(config.AuthConfig{JWTSecret: secret, JWTIssuer: "church-auth"}, profiles, logger.NewNop())
}

func TestValidTokenResolvesActor(t *testing.T) {
	profiles := &fakeProfiles{name: "Ruth Moyo"}
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("member-1", "checkin_team", time.Now().Add(time.Hour)))

	rec, seen := serve(newAuth(profiles), "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if seen == nil || seen.ID != "member-1" || seen.Role != actor.RoleCheckinTeam || seen.Name != "Ruth Moyo" {
		t.Fatalf("unexpected actor %+v", seen)
	}
	if len(profiles.touched) != 1 || profiles.touched[0] != "member-1" {
		t.Fatalf("expected profile touch, got %v", profiles.touched)
	}
}

func TestRejectedTokens(t *testing.T) {
	future := time.Now().Add(time.Hour)
	cases := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing", header: "", code: "invalid_token"},
		{name: "not bearer", header: "Basic abc", code: "invalid_token"},
		{name: "expired", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("u1", "admin", time.Now().Add(-time.Hour))), code: "token_expired"},
		{name: "wrong secret", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("u1", "admin", future)), code: "invalid_token"},
		{name: "wrong algorithm", header: "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), claimsFor("u1", "admin", future)), code: "invalid_token"},
		{name: "no subject", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("", "admin", future)), code: "invalid_token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, seen := serve(newAuth(nil), tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if seen != nil {
				t.Fatalf("handler must not run")
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, got)
			}
		})
	}
}

func TestWrongIssuerRejected(t *testing.T) {
	claims := claimsFor("u1", "admin", time.Now().Add(time.Hour))
	claims.Issuer = "someone-else"
	rec, _ := serve(newAuth(nil), "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), claims))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProfileFailureFallsBackToClaims(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("member-1", "member", time.Now().Add(time.Hour)))
	rec, seen := serve(newAuth(&fakeProfiles{fail: true}), "Bearer "+token)
	if rec.Code != http.StatusOK || seen == nil || seen.ID != "member-1" {
		t.Fatalf("expected claims actor, got %d %+v", rec.Code, seen)
	}
}

func TestOptionalAllowsAnonymous(t *testing.T) {
	auth := NewJWTAuth(config.AuthConfig{JWTSecret: secret}, nil, logger.NewNop())
	called := false
	h := auth.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ActorFromContext(r.Context())
		called = !ok
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/guest-checkin", nil))
	if !called {
		t.Fatalf("expected anonymous request to pass through")
	}
}

func TestSkipAuthUsesMockUser(t *testing.T) {
	auth := NewJWTAuth(config.AuthConfig{SkipAuth: true, MockUserID: "local-admin", MockRole: "admin"}, nil, logger.NewNop())
	rec, seen := serve(auth, "")
	if rec.Code != http.StatusOK || seen == nil || seen.ID != "local-admin" || seen.Role != actor.RoleAdmin {
		t.Fatalf("expected mock admin, got %d %+v", rec.Code, seen)
	}
}
