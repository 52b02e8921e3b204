package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is a job lifecycle stage
type Status string

const (
	StatusIdle         Status = "idle"
	StatusValidating   Status = "validating"
	StatusConverting   Status = "converting"
	StatusTranscribing Status = "transcribing"
	StatusExporting    Status = "exporting"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// ErrJobAlreadyRunning is returned when a job is submitted while another is active
var ErrJobAlreadyRunning = errors.New("a transcription job is already running")

// Job is the state of one transcription request
type Job struct {
	ID         string    `json:"id"`
	AudioFile  string    `json:"audio_file"`
	Format     string    `json:"format"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	SavedPaths []string  `json:"saved_paths,omitempty"`
}

// validTransitions maps each status to the statuses it may move to.
// Any running stage may fail; the pipeline otherwise moves strictly forward.
var validTransitions = map[Status][]Status{
	StatusIdle:         {StatusValidating},
	StatusValidating:   {StatusConverting, StatusFailed},
	StatusConverting:   {StatusTranscribing, StatusFailed},
	StatusTranscribing: {StatusExporting, StatusFailed},
	StatusExporting:    {StatusDone, StatusFailed},
	StatusDone:         {StatusValidating},
	StatusFailed:       {StatusValidating},
}

func isValidTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Manager holds the single active job. Only one job runs at a time; a new
// submission while one is active is rejected.
type Manager struct {
	mu      sync.RWMutex
	current Job
}

// NewManager creates a manager in the idle state
func NewManager() *Manager {
	return &Manager{current: Job{Status: StatusIdle}}
}

// Start admits a new job, rejecting it when one is already running
func (m *Manager) Start(job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running() {
		return ErrJobAlreadyRunning
	}
	if !isValidTransition(m.current.Status, StatusValidating) {
		return fmt.Errorf("cannot start job from status %q", m.current.Status)
	}

	job.Status = StatusValidating
	job.StartedAt = time.Now()
	m.current = job
	return nil
}

// Transition moves the current job to the next stage
func (m *Manager) Transition(to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(m.current.Status, to) {
		return fmt.Errorf("invalid transition %q -> %q", m.current.Status, to)
	}
	m.current.Status = to
	return nil
}

// Fail marks the current job failed with the given message. Safe from any
// running stage; once the job is terminal it is a no-op.
func (m *Manager) Fail(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running() {
		return
	}
	m.current.Status = StatusFailed
	m.current.Error = msg
	m.current.FinishedAt = time.Now()
}

// Complete marks the current job done with the exported file paths
func (m *Manager) Complete(savedPaths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(m.current.Status, StatusDone) {
		return fmt.Errorf("cannot complete job from status %q", m.current.Status)
	}
	m.current.Status = StatusDone
	m.current.SavedPaths = savedPaths
	m.current.FinishedAt = time.Now()
	return nil
}

// Current returns a copy of the current job
func (m *Manager) Current() Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a job is in a non-terminal stage
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running()
}

func (m *Manager) running() bool {
	switch m.current.Status {
	case StatusIdle, StatusDone, StatusFailed:
		return false
	}
	return true
}
