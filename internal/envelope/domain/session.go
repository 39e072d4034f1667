package domain

import (
	"fmt"
	"time"

	"github.com/louisbranch/luckymoney/internal/platform/id"
)

// Fixed parameters of a lucky money session. One pool of TotalMoney is
// split into TotalEnvelopes envelopes; every envelope yields at least
// MinAmount, and every envelope except the last yields at most MaxAmount.
const (
	TotalMoney     int64 = 500_000
	TotalEnvelopes       = 10
	MaxPlayers           = 10
	MinAmount      int64 = 10_000
	MaxAmount      int64 = 100_000
)

// Player records one participant, unique by ID within a session.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Opening records one opened envelope. Openings are append-only within a
// session and unique by player ID.
type Opening struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Amount     int64     `json:"amount"`
	OpenedAt   time.Time `json:"openedAt"`
}

// Session is the single live lucky money game instance. It is owned
// exclusively by the session engine; all other components receive
// read-only copies.
type Session struct {
	ID                 string    `json:"sessionId"`
	TotalMoney         int64     `json:"totalMoney"`
	RemainingMoney     int64     `json:"remainingMoney"`
	TotalEnvelopes     int       `json:"totalEnvelopes"`
	RemainingEnvelopes int       `json:"remainingEnvelopes"`
	MaxPlayers         int       `json:"maxPlayers"`
	Players            []Player  `json:"players"`
	OpenedBy           []Opening `json:"openedBy"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	LastActivity       time.Time `json:"lastActivity"`
}

// NewSession creates a fresh session with a generated ID, full money and
// envelope counts, and empty player and opening lists.
func NewSession(now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return Session{
		ID:                 sessionID,
		TotalMoney:         TotalMoney,
		RemainingMoney:     TotalMoney,
		TotalEnvelopes:     TotalEnvelopes,
		RemainingEnvelopes: TotalEnvelopes,
		MaxPlayers:         MaxPlayers,
		Players:            []Player{},
		OpenedBy:           []Opening{},
		IsActive:           true,
		CreatedAt:          createdAt,
		LastActivity:       createdAt,
	}, nil
}

// Clone returns a deep copy of the session, safe to hand outside the
// session engine.
func (s Session) Clone() Session {
	cloned := s
	cloned.Players = make([]Player, len(s.Players))
	copy(cloned.Players, s.Players)
	cloned.OpenedBy = make([]Opening, len(s.OpenedBy))
	copy(cloned.OpenedBy, s.OpenedBy)
	return cloned
}

// HasPlayer reports whether a player with the given ID has joined.
func (s Session) HasPlayer(playerID string) bool {
	for _, player := range s.Players {
		if player.ID == playerID {
			return true
		}
	}
	return false
}

// HasOpened reports whether the given player already opened an envelope.
func (s Session) HasOpened(playerID string) bool {
	for _, opening := range s.OpenedBy {
		if opening.PlayerID == playerID {
			return true
		}
	}
	return false
}

// OpenedTotal returns the sum of all opened envelope amounts.
func (s Session) OpenedTotal() int64 {
	var total int64
	for _, opening := range s.OpenedBy {
		total += opening.Amount
	}
	return total
}

// CheckInvariants verifies the pool-consistency invariants that must hold
// after every mutation. It returns the first violation found.
func (s Session) CheckInvariants() error {
	if s.RemainingEnvelopes != s.TotalEnvelopes-len(s.OpenedBy) {
		return fmt.Errorf("remaining envelopes %d != total %d - opened %d",
			s.RemainingEnvelopes, s.TotalEnvelopes, len(s.OpenedBy))
	}
	if s.RemainingMoney != s.TotalMoney-s.OpenedTotal() {
		return fmt.Errorf("remaining money %d != total %d - opened sum %d",
			s.RemainingMoney, s.TotalMoney, s.OpenedTotal())
	}
	seen := make(map[string]bool, len(s.OpenedBy))
	for _, opening := range s.OpenedBy {
		if seen[opening.PlayerID] {
			return fmt.Errorf("duplicate opening for player %s", opening.PlayerID)
		}
		seen[opening.PlayerID] = true
	}
	if s.IsActive && s.RemainingEnvelopes == 0 {
		return fmt.Errorf("session active with no envelopes remaining")
	}
	if len(s.Players) > s.MaxPlayers {
		return fmt.Errorf("player count %d exceeds capacity %d", len(s.Players), s.MaxPlayers)
	}
	return nil
}

// Status is the read-only projection served to status queries and pushed
// to subscribers.
type Status struct {
	SessionID          string    `json:"sessionId"`
	TotalMoney         int64     `json:"totalMoney"`
	RemainingMoney     int64     `json:"remainingMoney"`
	RemainingEnvelopes int       `json:"remainingEnvelopes"`
	MaxPlayers         int       `json:"maxPlayers"`
	CurrentPlayers     int       `json:"currentPlayers"`
	IsActive           bool      `json:"isActive"`
	OpenedBy           []Opening `json:"openedBy"`
}

// Status projects the session into its public read-only form.
func (s Session) Status() Status {
	openedBy := make([]Opening, len(s.OpenedBy))
	copy(openedBy, s.OpenedBy)
	return Status{
		SessionID:          s.ID,
		TotalMoney:         s.TotalMoney,
		RemainingMoney:     s.RemainingMoney,
		RemainingEnvelopes: s.RemainingEnvelopes,
		MaxPlayers:         s.MaxPlayers,
		CurrentPlayers:     len(s.Players),
		IsActive:           s.IsActive,
		OpenedBy:           openedBy,
	}
}
