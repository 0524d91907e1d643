//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"checkin-app-go/internal/app"
	"checkin-app-go/internal/config"
	"checkin-app-go/internal/db"
	"checkin-app-go/internal/domain/program"
	"checkin-app-go/internal/metrics"
	"checkin-app-go/internal/pollclient"
	"checkin-app-go/internal/transport/httpserver"
	authmw "checkin-app-go/internal/transport/httpserver/middleware"
	"checkin-app-go/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const jwtSecret = "e2e-secret"

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	cfg := config.Config{
		Env:            "test",
		MetricsEnabled: true,
		CORSOrigins:    []string{"*"},
		CheckIn: config.CheckInConfig{
			CodeLength:       4,
			CodeAttempts:     20,
			PickupCodeLength: 4,
			TimeZone:         "UTC",
			ActiveCacheTTL:   time.Second,
		},
		DB:       config.DBConfig{Driver: config.DriverPostgres, DSN: dsn, MigrationsDir: "migrations"},
		Auth:     config.AuthConfig{JWTSecret: jwtSecret},
		Programs: program.DefaultCatalog(),
	}

	log := logger.NewNop()
	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(dbConn, cfg.DB, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	m := metrics.New()
	handlers, profiles, err := app.NewHandlers(cfg, dbConn, m, log)
	if err != nil {
		t.Fatalf("wire handlers: %v", err)
	}
	server := httptest.NewServer(httpserver.NewRouter(cfg, handlers, profiles, m, log))

	return &testEnv{server: server, db: dbConn}
}

func (e *testEnv) Close() {
	e.server.Close()
	sqlDB, err := e.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func cleanDB(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE roster_entries, sessions, children, user_profiles CASCADE",
	).Error
}

func signToken(t *testing.T, userID, name, role string) string {
	t.Helper()
	claims := authmw.Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func requestJSON(t *testing.T, client *http.Client, method, url, token string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

type sessionEnvelope struct {
	Session struct {
		ID      string `json:"id"`
		Program string `json:"program"`
		Code    string `json:"code"`
		Status  string `json:"status"`
	} `json:"session"`
}

func TestE2EHealthAndAuth(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}

	resp, body := requestJSON(t, client, http.MethodGet, env.server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, string(body))
	}
	var errResp errorEnvelope
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %q", errResp.Error.Code)
	}

	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/auth/me", signToken(t, "member-1", "Ruth", "member"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var profile struct {
		Name string `json:"name"`
	}
	if err := env.db.Raw("SELECT name FROM user_profiles WHERE user_id = ?", "member-1").Scan(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Name != "Ruth" {
		t.Fatalf("expected profile upsert, got %q", profile.Name)
	}
}

func TestE2EConcurrentOpenHasOneWinner(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	admin := signToken(t, "admin-1", "Pastor Dan", "admin")

	const attempts = 10
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _ := requestJSON(t, client, http.MethodPost, env.server.URL+"/api/staff/programs/session/open", admin, map[string]string{"program": "youth"})
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one open to succeed, got %d", created)
	}

	var active int64
	if err := env.db.Raw("SELECT COUNT(*) FROM sessions WHERE program = 'youth' AND status = 'active'").Scan(&active).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active session, got %d", active)
	}
}

func TestE2ECheckInAndPickupFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	admin := signToken(t, "admin-1", "Pastor Dan", "admin")
	parent := signToken(t, "parent-1", "Ada Lovelace", "member")

	resp, body := requestJSON(t, client, http.MethodPost, env.server.URL+"/api/checkin/start", admin, map[string]string{"service_type": "sunday-worship"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: %d %s", resp.StatusCode, string(body))
	}
	var opened sessionEnvelope
	if err := json.Unmarshal(body, &opened); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	payload := map[string]string{"code": opened.Session.Code, "request_key": "tablet-7:1"}
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/checkin", parent, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkin: %d %s", resp.StatusCode, string(body))
	}
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/checkin", parent, payload)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"duplicate":true`) {
		t.Fatalf("expected idempotent retry, got %d %s", resp.StatusCode, string(body))
	}

	birth := time.Now().UTC().AddDate(-7, 0, 0).Format("2006-01-02")
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/children", parent, map[string]string{
		"first_name": "Ben",
		"last_name":  "Lovelace",
		"birth_date": birth,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register child: %d %s", resp.StatusCode, string(body))
	}
	var kid struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &kid); err != nil {
		t.Fatalf("decode child: %v", err)
	}

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/staff/programs/session/open", admin, map[string]string{"program": "youth"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open youth: %d %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/programs/checkin/youth", parent, map[string]interface{}{
		"child_ids":               []string{kid.ID},
		"emergency_contact_name":  "Ada Lovelace",
		"emergency_contact_phone": "+1 555 010 1234",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("children checkin: %d %s", resp.StatusCode, string(body))
	}
	var checkins struct {
		Checkins []struct {
			PickupCode string `json:"pickup_code"`
		} `json:"checkins"`
	}
	if err := json.Unmarshal(body, &checkins); err != nil || len(checkins.Checkins) != 1 {
		t.Fatalf("decode checkins: %v %s", err, string(body))
	}

	staff := pollclient.NewClient(env.server.URL+"/api", pollclient.Credentials{Token: admin})
	entries, err := staff.Roster(context.Background(), pollclient.RosterQuery{Program: "youth"})
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(entries) != 1 || !entries[0].Awaiting {
		t.Fatalf("unexpected roster %+v", entries)
	}

	pickup := map[string]string{"program": "youth", "pickup_code": checkins.Checkins[0].PickupCode}
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/staff/programs/pickup", admin, pickup)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pickup: %d %s", resp.StatusCode, string(body))
	}
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/staff/programs/pickup", admin, pickup)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected reused code to fail, got %d %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/admin/sessions/stop", admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("stop: %d %s", resp.StatusCode, string(body))
	}
	active, err := staff.ActiveCheckIn(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active service session, got %+v", active)
	}
}
