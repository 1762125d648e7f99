// Package job provides the synthesis job aggregate and the orchestrator
// that runs one end-to-end pipeline execution per client request. A job
// owns exactly one workspace for its lifetime; the workspace is released
// exactly once on every exit path.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/Aneek02/voice/internal/job/id"
)

// Status represents the current state of a synthesis job.
type Status string

const (
	// StatusReceived indicates the request was accepted and validated.
	StatusReceived Status = "RECEIVED"
	// StatusWorkspaceReady indicates scratch and output dirs are allocated.
	StatusWorkspaceReady Status = "WORKSPACE_READY"
	// StatusSynthesizing indicates the engine is running.
	StatusSynthesizing Status = "SYNTHESIZING"
	// StatusCollecting indicates outputs are being verified and gathered.
	StatusCollecting Status = "COLLECTING"
	// StatusPersisted indicates the result reference reached the registry.
	StatusPersisted Status = "PERSISTED"
	// StatusResponded indicates the job finished and the response was built.
	StatusResponded Status = "RESPONDED"
	// StatusFailed indicates the job hit a fatal error. Reachable from any
	// non-terminal state.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusReceived:       {StatusWorkspaceReady, StatusFailed},
	StatusWorkspaceReady: {StatusSynthesizing, StatusFailed},
	StatusSynthesizing:   {StatusCollecting, StatusFailed},
	// Collecting may skip straight to responded when synthesis succeeded
	// but the durable record write failed: the artifact is still returned,
	// with a warning.
	StatusCollecting: {StatusPersisted, StatusResponded, StatusFailed},
	StatusPersisted:      {StatusResponded, StatusFailed},
	StatusResponded:      {},
	StatusFailed:         {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one end-to-end execution of the synthesis pipeline.
// The id doubles as the workspace directory name.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current pipeline state.
	Status Status
	// Error contains the failure message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job with a generated id in RECEIVED state.
func New() *Job {
	now := time.Now()
	return &Job{
		ID:        id.Generate(),
		Status:    StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Job with the specified id in RECEIVED state.
// Useful for testing or when the id is generated externally.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	if status == StatusResponded || status == StatusFailed {
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Fail transitions the job to FAILED with an error message.
// Returns ErrInvalidTransition if the job is already terminal.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusResponded || j.Status == StatusFailed
}
