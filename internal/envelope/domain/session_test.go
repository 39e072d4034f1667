package domain

import (
	"testing"
	"time"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	index := 0
	return func() (string, error) {
		id := ids[index]
		index++
		return id, nil
	}
}

func TestNewSessionStartsFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	session, err := NewSession(fixedClock(now), sequentialIDGenerator("session-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if session.ID != "session-1" {
		t.Fatalf("expected generated id, got %q", session.ID)
	}
	if session.RemainingMoney != TotalMoney {
		t.Fatalf("expected full pool %d, got %d", TotalMoney, session.RemainingMoney)
	}
	if session.RemainingEnvelopes != TotalEnvelopes {
		t.Fatalf("expected %d envelopes, got %d", TotalEnvelopes, session.RemainingEnvelopes)
	}
	if !session.IsActive {
		t.Fatal("expected fresh session to be active")
	}
	if len(session.Players) != 0 || len(session.OpenedBy) != 0 {
		t.Fatal("expected empty player and opening lists")
	}
	if !session.CreatedAt.Equal(now) || !session.LastActivity.Equal(now) {
		t.Fatalf("expected timestamps %v, got created %v activity %v", now, session.CreatedAt, session.LastActivity)
	}
	if err := session.CheckInvariants(); err != nil {
		t.Fatalf("fresh session violates invariants: %v", err)
	}
}

func TestNewSessionGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()

	first, err := NewSession(nil, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	second, err := NewSession(nil, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct session ids, both %q", first.ID)
	}
}

func TestCloneIsolatesSlices(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	session, err := NewSession(fixedClock(now), sequentialIDGenerator("session-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.Players = append(session.Players, Player{ID: "p1", Name: "Alice", JoinedAt: now})

	cloned := session.Clone()
	cloned.Players[0].Name = "Mallory"
	cloned.OpenedBy = append(cloned.OpenedBy, Opening{PlayerID: "p1"})

	if session.Players[0].Name != "Alice" {
		t.Fatalf("clone mutation leaked into original: %q", session.Players[0].Name)
	}
	if len(session.OpenedBy) != 0 {
		t.Fatal("clone append leaked into original openings")
	}
}

func TestCheckInvariantsDetectsViolations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	base, err := NewSession(fixedClock(now), sequentialIDGenerator("session-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	broken := base.Clone()
	broken.RemainingEnvelopes--
	if err := broken.CheckInvariants(); err == nil {
		t.Fatal("expected envelope count violation")
	}

	broken = base.Clone()
	broken.RemainingMoney -= 5
	if err := broken.CheckInvariants(); err == nil {
		t.Fatal("expected money conservation violation")
	}

	broken = base.Clone()
	broken.OpenedBy = []Opening{
		{PlayerID: "p1", Amount: 10_000},
		{PlayerID: "p1", Amount: 10_000},
	}
	broken.RemainingEnvelopes = broken.TotalEnvelopes - 2
	broken.RemainingMoney = broken.TotalMoney - 20_000
	if err := broken.CheckInvariants(); err == nil {
		t.Fatal("expected duplicate opening violation")
	}
}

func TestStatusProjectsPublicFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	session, err := NewSession(fixedClock(now), sequentialIDGenerator("session-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.Players = append(session.Players, Player{ID: "p1", Name: "Alice", JoinedAt: now})
	session.OpenedBy = append(session.OpenedBy, Opening{PlayerID: "p1", PlayerName: "Alice", Amount: 25_000, OpenedAt: now})
	session.RemainingMoney -= 25_000
	session.RemainingEnvelopes--

	status := session.Status()
	if status.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", status.SessionID)
	}
	if status.CurrentPlayers != 1 {
		t.Fatalf("expected one current player, got %d", status.CurrentPlayers)
	}
	if len(status.OpenedBy) != 1 || status.OpenedBy[0].Amount != 25_000 {
		t.Fatalf("unexpected openings projection: %+v", status.OpenedBy)
	}

	// Projection shares no backing array with the session.
	status.OpenedBy[0].Amount = 1
	if session.OpenedBy[0].Amount != 25_000 {
		t.Fatal("status mutation leaked into session")
	}
}
