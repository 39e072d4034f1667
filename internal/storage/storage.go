// Package storage defines the persistence boundaries of the service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/luckymoney/internal/envelope/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// SessionStore persists the single live session record. SaveSession must
// replace the record atomically; LoadSession returns ErrNotFound when no
// session has ever been persisted.
type SessionStore interface {
	LoadSession(ctx context.Context) (domain.Session, error)
	SaveSession(ctx context.Context, session domain.Session) error
}

// TelemetryEvent records one committed session mutation for operational
// inspection.
type TelemetryEvent struct {
	Timestamp time.Time
	Operation string
	SessionID string
	PlayerID  string
	Amount    int64
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
