package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/luckymoney/internal/envelope/domain"
	"github.com/louisbranch/luckymoney/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "luckymoney.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestLoadSessionNotFoundWhenEmpty(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, err := store.LoadSession(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadSessionRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	session := domain.Session{
		ID:                 "session-1",
		TotalMoney:         domain.TotalMoney,
		RemainingMoney:     domain.TotalMoney - 42_000,
		TotalEnvelopes:     domain.TotalEnvelopes,
		RemainingEnvelopes: domain.TotalEnvelopes - 1,
		MaxPlayers:         domain.MaxPlayers,
		Players:            []domain.Player{{ID: "p1", Name: "Alice", JoinedAt: now}},
		OpenedBy:           []domain.Opening{{PlayerID: "p1", PlayerName: "Alice", Amount: 42_000, OpenedAt: now}},
		IsActive:           true,
		CreatedAt:          now,
		LastActivity:       now,
	}

	if err := store.SaveSession(context.Background(), session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.ID != session.ID {
		t.Fatalf("expected id %q, got %q", session.ID, loaded.ID)
	}
	if loaded.RemainingMoney != session.RemainingMoney {
		t.Fatalf("expected remaining money %d, got %d", session.RemainingMoney, loaded.RemainingMoney)
	}
	if len(loaded.Players) != 1 || loaded.Players[0].Name != "Alice" {
		t.Fatalf("unexpected players: %+v", loaded.Players)
	}
	if len(loaded.OpenedBy) != 1 || loaded.OpenedBy[0].Amount != 42_000 {
		t.Fatalf("unexpected openings: %+v", loaded.OpenedBy)
	}
	if !loaded.OpenedBy[0].OpenedAt.Equal(now) {
		t.Fatalf("expected opened at %v, got %v", now, loaded.OpenedBy[0].OpenedAt)
	}
}

func TestSaveSessionReplacesRecord(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	first, err := domain.NewSession(func() time.Time { return now }, func() (string, error) { return "session-1", nil })
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	second, err := domain.NewSession(func() time.Time { return now }, func() (string, error) { return "session-2", nil })
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if err := store.SaveSession(context.Background(), first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.SaveSession(context.Background(), second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	loaded, err := store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.ID != "session-2" {
		t.Fatalf("expected replaced record session-2, got %q", loaded.ID)
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "luckymoney.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	session, err := domain.NewSession(nil, func() (string, error) { return "session-1", nil })
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := store.SaveSession(context.Background(), session); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Fatalf("close reopened store: %v", err)
		}
	}()

	loaded, err := reopened.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if loaded.ID != "session-1" {
		t.Fatalf("expected persisted session-1, got %q", loaded.ID)
	}
}

func TestAppendTelemetryEvent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	event := storage.TelemetryEvent{
		Timestamp: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Operation: "envelope.open",
		SessionID: "session-1",
		PlayerID:  "p1",
		Amount:    42_000,
	}

	if err := store.AppendTelemetryEvent(context.Background(), event); err != nil {
		t.Fatalf("append telemetry: %v", err)
	}

	var count int64
	row := store.sqlDB.QueryRow("SELECT COUNT(*) FROM telemetry_events WHERE operation = 'envelope.open'")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count telemetry rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one telemetry row, got %d", count)
	}
}

func TestAppendTelemetryEventRequiresOperation(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{SessionID: "session-1"})
	if err == nil {
		t.Fatal("expected error for missing operation")
	}
}
