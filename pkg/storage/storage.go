// Package storage contains storage interfaces and implementations
//
//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks SyncDatastore
package storage

import (
	"context"
	"time"
)

// PartState is the durable fan-in record of a single run.
type PartState struct {
	RunID string

	// TotalParts is nil until the producer announced how many parts the run has.
	TotalParts *int

	// CompletedParts is the number of distinct part ids recorded for the run.
	CompletedParts int

	UpdatedAt time.Time
}

// PartStateStore persists which parts of a run have been received. Every
// operation must be idempotent because deliveries are at-least-once.
type PartStateStore interface {
	// AddCompletedPart records partID for runID, creating the run record when
	// needed. Recording a part id twice is not an error; added reports whether
	// this call inserted it.
	AddCompletedPart(ctx context.Context, runID, partID string) (added bool, err error)

	// SetTotalParts records the expected number of parts. Setting the same value
	// again is a no-op, a different value returns ErrConflictingTotalParts.
	SetTotalParts(ctx context.Context, runID string, total int) error

	// ReadPartState returns ErrNotFound when nothing was recorded for runID.
	ReadPartState(ctx context.Context, runID string) (*PartState, error)

	// DeletePartState removes every trace of runID. Deleting a missing run is not an error.
	DeletePartState(ctx context.Context, runID string) error

	// FinalizeRun deletes the fan-in state of runID and leaves a marker behind
	// so parts delivered afterwards can be recognized and dropped. Finalizing a
	// run twice is not an error.
	FinalizeRun(ctx context.Context, runID string) error

	// IsRunFinalized reports whether FinalizeRun was called for runID and its
	// marker has not been purged yet.
	IsRunFinalized(ctx context.Context, runID string) (bool, error)

	// PurgeFinalizedRuns removes the markers of runs finalized before the given
	// time and returns how many were removed.
	PurgeFinalizedRuns(ctx context.Context, before time.Time) (int, error)
}

// ChunkStore persists encoded chunk payloads until every part of a run has arrived.
type ChunkStore interface {
	// WriteChunk stores payload under (runID, partID). A second write for the
	// same key keeps the first payload.
	WriteChunk(ctx context.Context, runID, partID string, payload []byte) error

	// ReadChunks returns all payloads of runID ordered by part id.
	ReadChunks(ctx context.Context, runID string) ([][]byte, error)

	DeleteChunks(ctx context.Context, runID string) error
}

type JobStatus string

const (
	JobStatusEnabled  JobStatus = "enabled"
	JobStatusDisabled JobStatus = "disabled"
)

// JobRecord tracks the safety state of a sync job across runs.
type JobRecord struct {
	JobID                 string
	ConsecutiveViolations int
	Status                JobStatus
	UpdatedAt             time.Time
}

// JobStore keeps sync job state. Jobs are created implicitly, enabled and with
// no violations, by the first write that references them.
type JobStore interface {
	// ReadJob returns ErrNotFound for jobs that were never written.
	ReadJob(ctx context.Context, jobID string) (*JobRecord, error)

	// IncrementViolations adds one to the consecutive violation counter and
	// returns the new value.
	IncrementViolations(ctx context.Context, jobID string) (int, error)

	ResetViolations(ctx context.Context, jobID string) error

	SetJobStatus(ctx context.Context, jobID string, status JobStatus) error
}

// SyncDatastore is the full persistence surface of the sync engine.
type SyncDatastore interface {
	PartStateStore
	ChunkStore
	JobStore

	// IsReady reports whether the datastore can serve requests, e.g. the schema
	// has been migrated.
	IsReady(ctx context.Context) (ReadinessStatus, error)

	// Close releases the resources held by the datastore.
	Close()
}

// ReadinessStatus represents the readiness status of the datastore.
type ReadinessStatus struct {
	// Message is a human-friendly status message for the current datastore status.
	Message string

	IsReady bool
}
