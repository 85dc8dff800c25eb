package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/openfga/membersync/pkg/storage"
)

var tracer = otel.Tracer("membersync/pkg/storage/memory")

type runRecord struct {
	total     *int
	parts     map[string]struct{}
	updatedAt time.Time
}

// MemoryBackend provides an ephemeral memory-backed implementation of [storage.SyncDatastore].
// These instances may be safely shared by multiple go-routines.
type MemoryBackend struct {
	// map: run id => fan-in state
	runs      map[string]*runRecord // GUARDED_BY(mutexRuns).
	mutexRuns sync.RWMutex

	// map: run id => finalized at
	finalized map[string]time.Time // GUARDED_BY(mutexRuns).

	// map: run id => part id => payload
	chunks      map[string]map[string][]byte // GUARDED_BY(mutexChunks).
	mutexChunks sync.RWMutex

	// map: job id => job state
	jobs      map[string]*storage.JobRecord // GUARDED_BY(mutexJobs).
	mutexJobs sync.RWMutex

	now func() time.Time
}

// Ensures that [MemoryBackend] implements the [storage.SyncDatastore] interface.
var _ storage.SyncDatastore = (*MemoryBackend)(nil)

// StorageOption defines a function type used for configuring a [MemoryBackend] instance.
type StorageOption func(dataStore *MemoryBackend)

// WithClock overrides the time source used for UpdatedAt fields.
func WithClock(now func() time.Time) StorageOption {
	return func(ds *MemoryBackend) { ds.now = now }
}

// New creates a new [MemoryBackend] given the options.
func New(opts ...StorageOption) *MemoryBackend {
	ds := &MemoryBackend{
		runs:      make(map[string]*runRecord),
		finalized: make(map[string]time.Time),
		chunks:    make(map[string]map[string][]byte),
		jobs:      make(map[string]*storage.JobRecord),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(ds)
	}

	return ds
}

// Close does not do anything for [MemoryBackend].
func (s *MemoryBackend) Close() {}

// IsReady see [storage.SyncDatastore].IsReady.
func (s *MemoryBackend) IsReady(context.Context) (storage.ReadinessStatus, error) {
	return storage.ReadinessStatus{IsReady: true}, nil
}

func (s *MemoryBackend) runLocked(runID string) *runRecord {
	rec, ok := s.runs[runID]
	if !ok {
		rec = &runRecord{parts: make(map[string]struct{})}
		s.runs[runID] = rec
	}
	rec.updatedAt = s.now()
	return rec
}

// AddCompletedPart see [storage.PartStateStore].AddCompletedPart.
func (s *MemoryBackend) AddCompletedPart(ctx context.Context, runID, partID string) (bool, error) {
	_, span := tracer.Start(ctx, "memory.AddCompletedPart")
	defer span.End()

	s.mutexRuns.Lock()
	defer s.mutexRuns.Unlock()

	rec := s.runLocked(runID)
	if _, ok := rec.parts[partID]; ok {
		return false, nil
	}
	rec.parts[partID] = struct{}{}
	return true, nil
}

// SetTotalParts see [storage.PartStateStore].SetTotalParts.
func (s *MemoryBackend) SetTotalParts(ctx context.Context, runID string, total int) error {
	_, span := tracer.Start(ctx, "memory.SetTotalParts")
	defer span.End()

	if err := storage.ValidateTotalParts(total); err != nil {
		return err
	}

	s.mutexRuns.Lock()
	defer s.mutexRuns.Unlock()

	rec := s.runLocked(runID)
	if rec.total != nil {
		if *rec.total != total {
			return storage.ConflictingTotalPartsError(runID, *rec.total, total)
		}
		return nil
	}
	rec.total = &total
	return nil
}

// ReadPartState see [storage.PartStateStore].ReadPartState.
func (s *MemoryBackend) ReadPartState(ctx context.Context, runID string) (*storage.PartState, error) {
	_, span := tracer.Start(ctx, "memory.ReadPartState")
	defer span.End()

	s.mutexRuns.RLock()
	defer s.mutexRuns.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	state := &storage.PartState{
		RunID:          runID,
		CompletedParts: len(rec.parts),
		UpdatedAt:      rec.updatedAt,
	}
	if rec.total != nil {
		total := *rec.total
		state.TotalParts = &total
	}
	return state, nil
}

// DeletePartState see [storage.PartStateStore].DeletePartState.
func (s *MemoryBackend) DeletePartState(ctx context.Context, runID string) error {
	_, span := tracer.Start(ctx, "memory.DeletePartState")
	defer span.End()

	s.mutexRuns.Lock()
	defer s.mutexRuns.Unlock()

	delete(s.runs, runID)
	return nil
}

// FinalizeRun see [storage.PartStateStore].FinalizeRun.
func (s *MemoryBackend) FinalizeRun(ctx context.Context, runID string) error {
	_, span := tracer.Start(ctx, "memory.FinalizeRun")
	defer span.End()

	s.mutexRuns.Lock()
	defer s.mutexRuns.Unlock()

	if _, ok := s.finalized[runID]; !ok {
		s.finalized[runID] = s.now()
	}
	delete(s.runs, runID)
	return nil
}

// IsRunFinalized see [storage.PartStateStore].IsRunFinalized.
func (s *MemoryBackend) IsRunFinalized(ctx context.Context, runID string) (bool, error) {
	_, span := tracer.Start(ctx, "memory.IsRunFinalized")
	defer span.End()

	s.mutexRuns.RLock()
	defer s.mutexRuns.RUnlock()

	_, ok := s.finalized[runID]
	return ok, nil
}

// PurgeFinalizedRuns see [storage.PartStateStore].PurgeFinalizedRuns.
func (s *MemoryBackend) PurgeFinalizedRuns(ctx context.Context, before time.Time) (int, error) {
	_, span := tracer.Start(ctx, "memory.PurgeFinalizedRuns")
	defer span.End()

	s.mutexRuns.Lock()
	defer s.mutexRuns.Unlock()

	purged := 0
	for runID, at := range s.finalized {
		if at.Before(before) {
			delete(s.finalized, runID)
			purged++
		}
	}
	return purged, nil
}

// WriteChunk see [storage.ChunkStore].WriteChunk.
func (s *MemoryBackend) WriteChunk(ctx context.Context, runID, partID string, payload []byte) error {
	_, span := tracer.Start(ctx, "memory.WriteChunk")
	defer span.End()

	s.mutexChunks.Lock()
	defer s.mutexChunks.Unlock()

	parts, ok := s.chunks[runID]
	if !ok {
		parts = make(map[string][]byte)
		s.chunks[runID] = parts
	}
	if _, exists := parts[partID]; !exists {
		parts[partID] = slices.Clone(payload)
	}
	return nil
}

// ReadChunks see [storage.ChunkStore].ReadChunks.
func (s *MemoryBackend) ReadChunks(ctx context.Context, runID string) ([][]byte, error) {
	_, span := tracer.Start(ctx, "memory.ReadChunks")
	defer span.End()

	s.mutexChunks.RLock()
	defer s.mutexChunks.RUnlock()

	parts := s.chunks[runID]
	out := make([][]byte, 0, len(parts))
	for _, partID := range slices.Sorted(maps.Keys(parts)) {
		out = append(out, slices.Clone(parts[partID]))
	}
	return out, nil
}

// DeleteChunks see [storage.ChunkStore].DeleteChunks.
func (s *MemoryBackend) DeleteChunks(ctx context.Context, runID string) error {
	_, span := tracer.Start(ctx, "memory.DeleteChunks")
	defer span.End()

	s.mutexChunks.Lock()
	defer s.mutexChunks.Unlock()

	delete(s.chunks, runID)
	return nil
}

func (s *MemoryBackend) jobLocked(jobID string) *storage.JobRecord {
	job, ok := s.jobs[jobID]
	if !ok {
		job = &storage.JobRecord{JobID: jobID, Status: storage.JobStatusEnabled}
		s.jobs[jobID] = job
	}
	job.UpdatedAt = s.now()
	return job
}

// ReadJob see [storage.JobStore].ReadJob.
func (s *MemoryBackend) ReadJob(ctx context.Context, jobID string) (*storage.JobRecord, error) {
	_, span := tracer.Start(ctx, "memory.ReadJob")
	defer span.End()

	s.mutexJobs.RLock()
	defer s.mutexJobs.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// IncrementViolations see [storage.JobStore].IncrementViolations.
func (s *MemoryBackend) IncrementViolations(ctx context.Context, jobID string) (int, error) {
	_, span := tracer.Start(ctx, "memory.IncrementViolations")
	defer span.End()

	s.mutexJobs.Lock()
	defer s.mutexJobs.Unlock()

	job := s.jobLocked(jobID)
	job.ConsecutiveViolations++
	return job.ConsecutiveViolations, nil
}

// ResetViolations see [storage.JobStore].ResetViolations.
func (s *MemoryBackend) ResetViolations(ctx context.Context, jobID string) error {
	_, span := tracer.Start(ctx, "memory.ResetViolations")
	defer span.End()

	s.mutexJobs.Lock()
	defer s.mutexJobs.Unlock()

	s.jobLocked(jobID).ConsecutiveViolations = 0
	return nil
}

// SetJobStatus see [storage.JobStore].SetJobStatus.
func (s *MemoryBackend) SetJobStatus(ctx context.Context, jobID string, status storage.JobStatus) error {
	_, span := tracer.Start(ctx, "memory.SetJobStatus")
	defer span.End()

	s.mutexJobs.Lock()
	defer s.mutexJobs.Unlock()

	s.jobLocked(jobID).Status = status
	return nil
}
