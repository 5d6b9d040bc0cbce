// Package audit records operator actions on the duplicate workflow: scan
// starts and stops, group status changes, merges. Events are emitted to a
// Kafka topic so downstream compliance tooling can replay who did what.
package audit

import (
	"context"
	"time"
)

// Actions emitted by the duplicate workflow.
const (
	ActionScanStarted  = "scan.started"
	ActionScanStopped  = "scan.stopped"
	ActionGroupUpdated = "group.updated"
	ActionMerge        = "merge.executed"
)

// Event is one operator action. Details carries action-specific fields such
// as the job id, group id, or merged student ids.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Publisher emits audit events. Implementations must be safe for concurrent
// use; emission failures are logged, never surfaced to the operator.
type Publisher interface {
	Emit(ctx context.Context, event Event)
	Close()
}

// Nop discards every event. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
func (Nop) Close()                      {}
