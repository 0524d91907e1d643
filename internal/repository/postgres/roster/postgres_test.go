package roster

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/db"
	rosterdomain "checkin-app-go/internal/domain/roster"
	sessionsdomain "checkin-app-go/internal/domain/sessions"
	"checkin-app-go/pkg/logger"
	"gorm.io/gorm"
)

const sessionID = "5b0f7c1e-2f4a-4b8e-9d61-000000000001"

func setup(t *testing.T) (*gorm.DB, *PostgresRepository) {
	t.Helper()
	gormDB, err := db.Open(config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "checkin.db"),
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.MigrateSQLite(gormDB); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	session := sessionsdomain.Session{
		ID:          sessionID,
		Program:     "daycare",
		Status:      sessionsdomain.StatusActive,
		Code:        "4821",
		ServiceDate: "2026-10-11",
		OpenedAt:    time.Date(2026, 10, 11, 8, 0, 0, 0, time.UTC),
		OpenedBy:    "admin-1",
	}
	if err := gormDB.Create(&session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return gormDB, NewPostgres(gormDB)
}

func childEntry(id, name, code string, at time.Time) *rosterdomain.Entry {
	return &rosterdomain.Entry{
		ID:          id,
		SessionID:   sessionID,
		Program:     "daycare",
		ServiceDate: "2026-10-11",
		Type:        rosterdomain.TypeChild,
		DisplayName: name,
		Children:    1,
		CheckedInAt: at,
		PickupCode:  &code,
	}
}

func TestLockActiveSession(t *testing.T) {
	gormDB, repo := setup(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx rosterdomain.Repository) error {
		session, err := tx.LockActiveSessionByCode(ctx, "4821")
		if err != nil {
			return err
		}
		if session.ID != sessionID {
			t.Fatalf("unexpected session %s", session.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := gormDB.Model(&sessionsdomain.Session{}).Where("id = ?", sessionID).Update("status", sessionsdomain.StatusClosed).Error; err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := repo.LockActiveSessionByCode(ctx, "4821"); !errors.Is(err, sessionsdomain.ErrNotFound) {
		t.Fatalf("expected not found for closed session, got %v", err)
	}
	if _, err := repo.LockActiveSessionByProgram(ctx, "daycare"); !errors.Is(err, sessionsdomain.ErrNotFound) {
		t.Fatalf("expected not found for closed program, got %v", err)
	}
}

func TestRequestKeyIsUniquePerSession(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	key := "tap-1"
	at := time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC)

	first := &rosterdomain.Entry{ID: "e-1", SessionID: sessionID, Program: "daycare", ServiceDate: "2026-10-11", Type: rosterdomain.TypeMember, DisplayName: "Ruth", Adults: 1, CheckedInAt: at, RequestKey: &key}
	if err := repo.CreateEntry(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := *first
	second.ID = "e-2"
	if err := repo.CreateEntry(ctx, &second); !errors.Is(err, rosterdomain.ErrDuplicateRequest) {
		t.Fatalf("expected duplicate request, got %v", err)
	}

	found, err := repo.FindByRequestKey(ctx, sessionID, key)
	if err != nil || found.ID != "e-1" {
		t.Fatalf("expected e-1, got %+v (%v)", found, err)
	}
	if _, err := repo.FindByRequestKey(ctx, sessionID, "other"); !errors.Is(err, rosterdomain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPickupCodeReusableAfterClaim(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC)

	if err := repo.CreateEntry(ctx, childEntry("e-1", "Sam", "0420", at)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateEntry(ctx, childEntry("e-2", "Eli", "0420", at)); !errors.Is(err, rosterdomain.ErrPickupCodeTaken) {
		t.Fatalf("expected pickup code taken, got %v", err)
	}

	open, err := repo.IsPickupCodeOpen(ctx, sessionID, "0420")
	if err != nil || !open {
		t.Fatalf("expected open code, got %v (%v)", open, err)
	}

	entry, err := repo.MarkPickedUp(ctx, sessionID, "0420", at.Add(time.Hour), "admin-1")
	if err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if entry.DisplayName != "Sam" || entry.PickedUpAt == nil {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if _, err := repo.MarkPickedUp(ctx, sessionID, "0420", at.Add(time.Hour), "admin-1"); !errors.Is(err, rosterdomain.ErrNotFound) {
		t.Fatalf("expected not found on reuse, got %v", err)
	}

	if err := repo.CreateEntry(ctx, childEntry("e-3", "Eli", "0420", at)); err != nil {
		t.Fatalf("expected claimed code to be reusable, got %v", err)
	}
}

func TestConcurrentMarkPickedUpHasSingleWinner(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateEntry(ctx, childEntry("e-1", "Sam", "0420", at)); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkPickedUp(ctx, sessionID, "0420", at, "admin-1")
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, rosterdomain.ErrNotFound) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestListEntriesOrderAndSearch(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC)
	phone := "5550102030"

	entries := []*rosterdomain.Entry{
		{ID: "e-2", SessionID: sessionID, Program: "daycare", ServiceDate: "2026-10-11", Type: rosterdomain.TypeGuest, DisplayName: "Lydia Visitor", Phone: &phone, Adults: 1, FirstTime: true, CheckedInAt: base.Add(time.Minute)},
		{ID: "e-1", SessionID: sessionID, Program: "daycare", ServiceDate: "2026-10-11", Type: rosterdomain.TypeMember, DisplayName: "Ruth 100%", Adults: 1, CheckedInAt: base},
		{ID: "e-0", SessionID: sessionID, Program: "daycare", ServiceDate: "2026-10-11", Type: rosterdomain.TypeMember, DisplayName: "Anna", Adults: 1, CheckedInAt: base.Add(time.Minute)},
	}
	for _, e := range entries {
		if err := repo.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create %s: %v", e.ID, err)
		}
	}

	all, err := repo.ListEntries(ctx, rosterdomain.Filter{Program: "daycare", ServiceDate: "2026-10-11"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "e-1" || all[1].ID != "e-0" || all[2].ID != "e-2" {
		t.Fatalf("unexpected order %v", ids(all))
	}

	byPhone, err := repo.ListEntries(ctx, rosterdomain.Filter{Program: "daycare", ServiceDate: "2026-10-11", Search: "010-20"})
	if err != nil || len(byPhone) != 1 || byPhone[0].ID != "e-2" {
		t.Fatalf("expected phone match, got %v (%v)", ids(byPhone), err)
	}

	literal, err := repo.ListEntries(ctx, rosterdomain.Filter{Program: "daycare", ServiceDate: "2026-10-11", Search: "100%"})
	if err != nil || len(literal) != 1 || literal[0].ID != "e-1" {
		t.Fatalf("expected literal percent match, got %v (%v)", ids(literal), err)
	}

	firstTime, err := repo.ListEntries(ctx, rosterdomain.Filter{SessionID: sessionID, FirstTime: true})
	if err != nil || len(firstTime) != 1 {
		t.Fatalf("expected one first-time entry, got %v (%v)", ids(firstTime), err)
	}

	none, err := repo.ListEntries(ctx, rosterdomain.Filter{Program: "youth", ServiceDate: "2026-10-11"})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", ids(none), err)
	}
}

func ids(entries []rosterdomain.Entry) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.ID)
	}
	return result
}
