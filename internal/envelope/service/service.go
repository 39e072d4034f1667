// Package service implements the session engine: the single mutation
// surface for the live lucky money session. All joins, opens, and resets
// are serialized through one lock so the read-mutate-persist sequence of
// one request is atomic with respect to every other request.
package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/luckymoney/internal/envelope/domain"
	apperrors "github.com/louisbranch/luckymoney/internal/platform/errors"
	"github.com/louisbranch/luckymoney/internal/platform/id"
	"github.com/louisbranch/luckymoney/internal/random"
	"github.com/louisbranch/luckymoney/internal/storage"
	"github.com/louisbranch/luckymoney/internal/telemetry"
)

// Config groups the session engine dependencies. Store is required; nil
// Clock, NewID, and Rand fall back to production defaults.
type Config struct {
	Store     storage.SessionStore
	Telemetry *telemetry.Emitter
	Clock     func() time.Time
	NewID     func() (string, error)
	Rand      *rand.Rand
}

// Service owns the single live session. It is safe for concurrent use;
// mutations are mutually exclusive and snapshots observe only committed
// state.
type Service struct {
	mu      sync.RWMutex
	session domain.Session

	store     storage.SessionStore
	telemetry *telemetry.Emitter
	clock     func() time.Time
	newID     func() (string, error)
	rng       *rand.Rand
}

// New creates a session engine with the provided dependencies. Callers
// must Restore the engine before serving requests.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	if cfg.Rand == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		cfg.Rand = rand.New(rand.NewSource(seed))
	}
	return &Service{
		store:     cfg.Store,
		telemetry: cfg.Telemetry,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
		rng:       cfg.Rand,
	}, nil
}

// Restore loads the persisted session, creating and persisting a fresh
// one when the store holds no record yet.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.LoadSession(ctx)
	if err == nil {
		s.session = session
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "load session", err)
	}

	fresh, err := domain.NewSession(s.clock, s.newID)
	if err != nil {
		return err
	}
	if err := s.store.SaveSession(ctx, fresh); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "persist fresh session", err)
	}
	s.session = fresh
	return nil
}

// JoinResult reports the outcome of a Join call. Event is nil for the
// idempotent already-joined case, which commits no mutation.
type JoinResult struct {
	SessionID      string
	AlreadyJoined  bool
	CurrentPlayers int
	Event          *domain.Event
}

// Join adds a player to the session. Joining twice with the same player
// ID succeeds without mutation. The check order is idempotency, then
// capacity, then session activity, matching the observable behavior the
// clients depend on.
func (s *Service) Join(ctx context.Context, playerID, playerName string) (JoinResult, error) {
	playerID = strings.TrimSpace(playerID)
	playerName = strings.TrimSpace(playerName)
	if playerID == "" || playerName == "" {
		return JoinResult{}, apperrors.New(apperrors.CodeMissingFields, "player id and name are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.HasPlayer(playerID) {
		return JoinResult{
			SessionID:      s.session.ID,
			AlreadyJoined:  true,
			CurrentPlayers: len(s.session.Players),
		}, nil
	}
	if len(s.session.Players) >= s.session.MaxPlayers {
		return JoinResult{}, apperrors.WithMetadata(apperrors.CodeCapacityExceeded,
			"session is full", map[string]string{"playerId": playerID})
	}
	if !s.session.IsActive {
		return JoinResult{}, apperrors.New(apperrors.CodeSessionInactive, "session is not active")
	}

	now := s.clock().UTC()
	mutated := s.session.Clone()
	mutated.Players = append(mutated.Players, domain.Player{
		ID:       playerID,
		Name:     playerName,
		JoinedAt: now,
	})
	mutated.LastActivity = now

	if err := s.store.SaveSession(ctx, mutated); err != nil {
		return JoinResult{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "persist session", err)
	}
	s.session = mutated

	s.emitTelemetry(ctx, "player.join", playerID, 0)

	return JoinResult{
		SessionID:      mutated.ID,
		CurrentPlayers: len(mutated.Players),
		Event: &domain.Event{
			Type: domain.EventTypePlayerJoined,
			Payload: domain.PlayerJoined{
				PlayerID:       playerID,
				PlayerName:     playerName,
				CurrentPlayers: len(mutated.Players),
			},
		},
	}, nil
}

// OpenResult reports the outcome of an Open call.
type OpenResult struct {
	Amount             int64
	RemainingMoney     int64
	RemainingEnvelopes int
	IsGameFinished     bool
	Event              *domain.Event
}

// Open allocates one envelope to the player. A player may open without a
// prior Join; each player may open at most once per session. Opening the
// last envelope deactivates the session.
func (s *Service) Open(ctx context.Context, playerID, playerName string) (OpenResult, error) {
	playerID = strings.TrimSpace(playerID)
	playerName = strings.TrimSpace(playerName)
	if playerID == "" {
		return OpenResult{}, apperrors.New(apperrors.CodeMissingPlayerID, "player id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.IsActive || s.session.RemainingEnvelopes == 0 {
		return OpenResult{}, apperrors.New(apperrors.CodeSessionInactive, "no envelopes remain")
	}
	if s.session.HasOpened(playerID) {
		return OpenResult{}, apperrors.WithMetadata(apperrors.CodeAlreadyOpened,
			"player already opened an envelope", map[string]string{"playerId": playerID})
	}

	amount, err := domain.Allocate(s.session.RemainingMoney, s.session.RemainingEnvelopes, s.rng)
	if err != nil {
		return OpenResult{}, wrapAllocationError(err)
	}

	now := s.clock().UTC()
	mutated := s.session.Clone()
	mutated.RemainingMoney -= amount
	mutated.RemainingEnvelopes--
	mutated.OpenedBy = append(mutated.OpenedBy, domain.Opening{
		PlayerID:   playerID,
		PlayerName: playerName,
		Amount:     amount,
		OpenedAt:   now,
	})
	if mutated.RemainingEnvelopes == 0 {
		mutated.IsActive = false
	}
	mutated.LastActivity = now

	if err := s.store.SaveSession(ctx, mutated); err != nil {
		return OpenResult{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "persist session", err)
	}
	s.session = mutated

	s.emitTelemetry(ctx, "envelope.open", playerID, amount)

	finished := mutated.RemainingEnvelopes == 0
	return OpenResult{
		Amount:             amount,
		RemainingMoney:     mutated.RemainingMoney,
		RemainingEnvelopes: mutated.RemainingEnvelopes,
		IsGameFinished:     finished,
		Event: &domain.Event{
			Type: domain.EventTypeEnvelopeOpened,
			Payload: domain.EnvelopeOpened{
				PlayerID:           playerID,
				PlayerName:         playerName,
				Amount:             amount,
				RemainingMoney:     mutated.RemainingMoney,
				RemainingEnvelopes: mutated.RemainingEnvelopes,
				IsGameFinished:     finished,
			},
		},
	}, nil
}

// ResetResult reports the outcome of a Reset call.
type ResetResult struct {
	SessionID string
	Status    domain.Status
	Event     *domain.Event
}

// Reset replaces the session wholesale with a fresh one. It succeeds
// from any state unless the store is unavailable.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := domain.NewSession(s.clock, s.newID)
	if err != nil {
		return ResetResult{}, err
	}
	if err := s.store.SaveSession(ctx, fresh); err != nil {
		return ResetResult{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "persist session", err)
	}
	s.session = fresh

	s.emitTelemetry(ctx, "session.reset", "", 0)

	status := fresh.Status()
	return ResetResult{
		SessionID: fresh.ID,
		Status:    status,
		Event: &domain.Event{
			Type:    domain.EventTypeGameReset,
			Payload: domain.GameReset{Status: status},
		},
	}, nil
}

// Status returns the public read-only projection of the committed state.
func (s *Service) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Status()
}

// Snapshot returns a deep copy of the committed session.
func (s *Service) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// emitTelemetry records an operational event for a committed mutation.
// Telemetry failures are logged, never surfaced: the mutation already
// committed.
func (s *Service) emitTelemetry(ctx context.Context, operation, playerID string, amount int64) {
	if s.telemetry == nil {
		return
	}
	evt := storage.TelemetryEvent{
		Timestamp: s.clock().UTC(),
		Operation: operation,
		SessionID: s.session.ID,
		PlayerID:  playerID,
		Amount:    amount,
	}
	if err := s.telemetry.Emit(ctx, evt); err != nil {
		log.Printf("emit telemetry %s: %v", operation, err)
	}
}

func wrapAllocationError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoEnvelopes):
		return apperrors.Wrap(apperrors.CodeAllocationNoEnvelopes, "allocate envelope", err)
	case errors.Is(err, domain.ErrPoolUnderfunded):
		return apperrors.Wrap(apperrors.CodeAllocationUnderfunded, "allocate envelope", err)
	default:
		return err
	}
}
