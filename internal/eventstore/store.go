// Package eventstore persists build events (stage transitions, per-request
// results) so an operator can inspect what a past build did.
package eventstore

import (
	"context"
	"time"
)

// Event is one persisted build event.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// Store is the persistence interface. The bootstrap sequencer and the build
// coordinator append; inspection tooling reads.
type Store interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)
	Close() error
}

// Common event types.
const (
	TypeStageStarted   = "StageStarted"
	TypeStageCompleted = "StageCompleted"
	TypeStageFailed    = "StageFailed"
	TypeBuildStarted   = "BuildStarted"
	TypeBuildCompleted = "BuildCompleted"
	TypeRequestFailed  = "RequestFailed"
)
