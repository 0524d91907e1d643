package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"checkin-app-go/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPPort       string
	Env            string
	MetricsEnabled bool
	CORSOrigins    []string
	CheckIn        CheckInConfig
	DB             DBConfig
	Auth           AuthConfig
	Programs       Catalog
}

type CheckInConfig struct {
	CodeLength       int
	CodeAttempts     int
	PickupCodeLength int
	TimeZone         string
	ActiveCacheTTL   time.Duration
}

type DBConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	SQLitePath      string
	MigrationsDir   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret    string
	JWTIssuer    string
	SkipAuth     bool
	MockUserID   string
	MockUserName string
	MockEmail    string
	MockRole     string
}

func Load(log logger.Logger) (Config, error) {
	if err := loadDotEnv(log); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	catalog, err := LoadCatalog(getEnv("PROGRAMS_FILE", "programs.yaml"))
	if err != nil {
		return Config{}, fmt.Errorf("load programs: %w", err)
	}

	cfg := Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CheckIn: CheckInConfig{
			CodeLength:       getEnvInt("CHECKIN_CODE_LENGTH", 4),
			CodeAttempts:     getEnvInt("CHECKIN_CODE_ATTEMPTS", 20),
			PickupCodeLength: getEnvInt("PICKUP_CODE_LENGTH", 4),
			TimeZone:         getEnv("CHECKIN_TIMEZONE", "UTC"),
			ActiveCacheTTL:   getEnvDuration("ACTIVE_CACHE_TTL", 2*time.Second),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "church_checkin"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			SQLitePath:      getEnv("SQLITE_PATH", "checkin.db"),
			MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:    getEnv("AUTH_JWT_ISSUER", ""),
			SkipAuth:     getEnvBool("AUTH_SKIP", false),
			MockUserID:   getEnv("AUTH_MOCK_USER_ID", "00000000-0000-0000-0000-000000000001"),
			MockUserName: getEnv("AUTH_MOCK_USER_NAME", "Local Admin"),
			MockEmail:    getEnv("AUTH_MOCK_USER_EMAIL", ""),
			MockRole:     getEnv("AUTH_MOCK_USER_ROLE", "admin"),
		},
		Programs: catalog,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.CheckIn.CodeLength < 1 || c.CheckIn.CodeLength > 9 {
		return fmt.Errorf("CHECKIN_CODE_LENGTH must be between 1 and 9, got %d", c.CheckIn.CodeLength)
	}
	if c.CheckIn.PickupCodeLength < 1 || c.CheckIn.PickupCodeLength > 9 {
		return fmt.Errorf("PICKUP_CODE_LENGTH must be between 1 and 9, got %d", c.CheckIn.PickupCodeLength)
	}
	if c.CheckIn.CodeAttempts < 1 {
		return fmt.Errorf("CHECKIN_CODE_ATTEMPTS must be positive")
	}
	if _, err := time.LoadLocation(c.CheckIn.TimeZone); err != nil {
		return fmt.Errorf("CHECKIN_TIMEZONE: %w", err)
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DB.Driver)
	}
	if !c.Auth.SkipAuth && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required unless AUTH_SKIP=true")
	}
	return nil
}

// Location returns the church time zone used to derive service dates.
func (c CheckInConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
