package server

import (
	"sync"
	"time"

	"github.com/msalhab/tarajim/internal/pipeline"
)

// RunState is the lifecycle state of a background extraction run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// Run tracks one background extraction started over the API.
type Run struct {
	ID        string           `json:"id"`
	BookID    string           `json:"book_id"`
	State     RunState         `json:"state"`
	StartedAt time.Time        `json:"started_at"`
	Report    *pipeline.Report `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// runStore keeps run status in memory. Runs are not persisted; the durable
// output of a run is the book's index and record files.
type runStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*Run)}
}

func (s *runStore) put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *runStore) get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, false
	}
	cp := *run
	return &cp, true
}

func (s *runStore) complete(id string, report *pipeline.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return
	}
	run.Report = report
	if err != nil {
		run.State = RunStateFailed
		run.Error = err.Error()
	} else {
		run.State = RunStateCompleted
	}
}
