// Package event defines the domain events a session emits and the publisher
// contract used to ship them elsewhere.
package event

import (
	"context"
	"time"
)

// Event types.
const (
	TypeSelectionCommitted = "selection.committed"
	TypeAnalysisCompleted  = "analysis.completed"
	TypeAnalysisFailed     = "analysis.failed"
)

// SelectionCommitted is emitted on every store commit.  The payload itself is
// not included; PayloadLength tells consumers whether the entity resolved.
type SelectionCommitted struct {
	SessionID     string    `json:"session_id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	ID            string    `json:"id,omitempty"`
	PayloadLength int       `json:"payload_length"`
	Version       uint64    `json:"version"`
	CommittedAt   time.Time `json:"committed_at"`
}

// AnalysisFinished is emitted when a run completes or fails.
type AnalysisFinished struct {
	SessionID   string    `json:"session_id"`
	Scorer      string    `json:"scorer"`
	DrugName    string    `json:"drug_name"`
	ProteinName string    `json:"protein_name"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	Discarded   bool      `json:"discarded,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Publisher ships events.  key groups related events (the session ID).
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
	Close() error
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                                 { return nil }

//Personal.AI order the ending
