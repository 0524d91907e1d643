package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"checkin-app-go/internal/domain/program"
	"checkin-app-go/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTH_SKIP", "true")

	cfg, err := Load(logger.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CheckIn.CodeLength != 4 {
		t.Fatalf("expected code length 4, got %d", cfg.CheckIn.CodeLength)
	}
	if cfg.CheckIn.ActiveCacheTTL != 2*time.Second {
		t.Fatalf("expected cache ttl 2s, got %s", cfg.CheckIn.ActiveCacheTTL)
	}
	if cfg.DB.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.DB.Driver)
	}
	if _, err := cfg.Programs.Get("daycare"); err != nil {
		t.Fatalf("expected default catalog, got %v", err)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTH_SKIP", "false")
	t.Setenv("AUTH_JWT_SECRET", "")

	if _, err := Load(logger.NewNop()); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	contents := "HTTP_PORT=9999\nCHECKIN_CODE_LENGTH=6\nAUTH_SKIP=true\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("CHECKIN_CODE_LENGTH", "")
	t.Setenv("AUTH_SKIP", "")
	os.Unsetenv("CHECKIN_CODE_LENGTH")
	os.Unsetenv("AUTH_SKIP")

	cfg, err := Load(logger.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "7000" {
		t.Fatalf("expected env to win, got %q", cfg.HTTPPort)
	}
	if cfg.CheckIn.CodeLength != 6 {
		t.Fatalf("expected .env code length 6, got %d", cfg.CheckIn.CodeLength)
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := Config{
		CheckIn: CheckInConfig{CodeLength: 4, PickupCodeLength: 4, CodeAttempts: 3, TimeZone: "UTC"},
		DB:      DBConfig{Driver: "mysql"},
		Auth:    AuthConfig{SkipAuth: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
version: 1
programs:
  - key: saturday-vigil
    title: Saturday Vigil
    kind: service
    location: Chapel
  - key: nursery
    title: Nursery
    kind: children
    max_age: 3
`)
	catalog, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	nursery, err := catalog.Get("nursery")
	if err != nil {
		t.Fatalf("expected nursery, got %v", err)
	}
	if nursery.Kind != program.KindChildren || nursery.MaxAge != 3 {
		t.Fatalf("unexpected program %+v", nursery)
	}
	if _, err := catalog.Get("daycare"); err == nil {
		t.Fatalf("expected defaults to be replaced by file contents")
	}
}

func TestParseCatalogRejectsUnknownKind(t *testing.T) {
	_, err := ParseCatalog([]byte("programs:\n  - key: x\n    kind: concert\n"))
	if err == nil {
		t.Fatalf("expected kind error")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
