package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/domain/children"
	"checkin-app-go/internal/domain/roster"
	"checkin-app-go/internal/domain/sessions"
	"checkin-app-go/internal/domain/user"
	"checkin-app-go/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// Partial unique indexes carry the one-active-session-per-program, unique
// active code and unique unclaimed pickup code rules. The postgres migrations
// declare the same indexes.
var sqliteIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_program ON sessions (program) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_code ON sessions (code) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_roster_open_pickup ON roster_entries (session_id, pickup_code) WHERE pickup_code IS NOT NULL AND picked_up_at IS NULL`,
}

// Migrate brings the schema up to date: golang-migrate files for postgres,
// AutoMigrate plus the partial indexes for sqlite.
func Migrate(gormDB *gorm.DB, cfg config.DBConfig, log logger.Logger) error {
	if cfg.Driver == config.DriverSQLite {
		return MigrateSQLite(gormDB)
	}

	path, err := findMigrationsDir(cfg.MigrationsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("db: migrations directory not found, skipping", "dir", cfg.MigrationsDir)
			return nil
		}
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(path), "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}
	log.Info("db: migrations applied", "version", version, "dirty", dirty)
	return nil
}

func MigrateSQLite(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(&sessions.Session{}, &roster.Entry{}, &children.Child{}, &user.Profile{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range sqliteIndexes {
		if err := gormDB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// findMigrationsDir resolves dirName as given when absolute, otherwise by
// walking up from the working directory.
func findMigrationsDir(dirName string) (string, error) {
	if dirName == "" {
		dirName = "migrations"
	}
	if filepath.IsAbs(dirName) {
		info, err := os.Stat(dirName)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", os.ErrNotExist
		}
		return dirName, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, dirName)
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}
