package status

import (
	"sync"
	"time"
)

// Log levels understood by the dashboard.
const (
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelSuccess = "success"
)

// DefaultLogCapacity bounds the in-memory log ring.
const DefaultLogCapacity = 500

// LogEntry is one line of the bounded run log.
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkerState is the per-worker view exposed to the polling dashboard.
type WorkerState struct {
	Progress    float64        `json:"progress"`
	CurrentTask string         `json:"current_task"`
	Counters    map[string]int `json:"counters"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Snapshot is the full status payload for GET /status.
type Snapshot struct {
	IsRunning     bool                   `json:"is_running"`
	RunID         uint                   `json:"run_id"`
	Progress      float64                `json:"progress"`
	ActiveWorkers []string               `json:"active_workers"`
	WorkerDetails map[string]WorkerState `json:"worker_details"`
	Errors        []string               `json:"errors"`
}

// Sink holds process-wide run status plus a bounded log ring. It is
// ephemeral: reset at run start, lost on restart, and distinct from the
// durable IndexerRun audit record. Writes never touch I/O.
type Sink struct {
	mu sync.RWMutex

	isRunning bool
	runID     uint
	progress  float64
	workers   map[string]*WorkerState

	logs    []LogEntry
	logHead int
	logLen  int
}

// NewSink creates a sink with the given log ring capacity.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Sink{
		workers: make(map[string]*WorkerState),
		logs:    make([]LogEntry, capacity),
	}
}

// Reset clears all state for a new run. The log ring is cleared too: the
// dashboard shows the current run only.
func (s *Sink) Reset(runID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = true
	s.runID = runID
	s.progress = 0
	s.workers = make(map[string]*WorkerState)
	s.logHead = 0
	s.logLen = 0
}

// SetProgress raises overall progress. Values below the current progress are
// ignored: progress is monotonically non-decreasing within a run.
func (s *Sink) SetProgress(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p > 100 {
		p = 100
	}
	if p > s.progress {
		s.progress = p
	}
}

// Finish marks the run done, pinning progress to 100 only on success.
func (s *Sink) Finish(succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
	if succeeded {
		s.progress = 100
	}
}

// UpdateWorker upserts a worker's progress and current task.
func (s *Sink) UpdateWorker(name string, progress float64, task string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[name]
	if !ok {
		w = &WorkerState{Counters: make(map[string]int), StartedAt: time.Now()}
		s.workers[name] = w
	}
	if progress > w.Progress {
		w.Progress = progress
	}
	w.CurrentTask = task
	w.UpdatedAt = time.Now()
}

// AddCounter increments a named counter on a worker.
func (s *Sink) AddCounter(name, counter string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[name]
	if !ok {
		w = &WorkerState{Counters: make(map[string]int), StartedAt: time.Now()}
		s.workers[name] = w
	}
	w.Counters[counter] += delta
	w.UpdatedAt = time.Now()
}

// Log appends an entry to the ring, evicting the oldest when full.
func (s *Sink) Log(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := LogEntry{Level: level, Message: message, Timestamp: time.Now()}
	capacity := len(s.logs)

	idx := (s.logHead + s.logLen) % capacity
	s.logs[idx] = entry
	if s.logLen < capacity {
		s.logLen++
	} else {
		s.logHead = (s.logHead + 1) % capacity
	}
}

// Logs returns up to limit entries, oldest first. limit <= 0 means all.
func (s *Sink) Logs(limit int) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.logLen
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]LogEntry, 0, n)
	// Take the newest n entries, preserving order.
	start := s.logLen - n
	for i := start; i < s.logLen; i++ {
		out = append(out, s.logs[(s.logHead+i)%len(s.logs)])
	}
	return out
}

// Snapshot returns the dashboard view of the current run.
func (s *Sink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		IsRunning:     s.isRunning,
		RunID:         s.runID,
		Progress:      s.progress,
		WorkerDetails: make(map[string]WorkerState, len(s.workers)),
	}
	for name, w := range s.workers {
		snap.ActiveWorkers = append(snap.ActiveWorkers, name)
		state := *w
		state.Counters = make(map[string]int, len(w.Counters))
		for k, v := range w.Counters {
			state.Counters[k] = v
		}
		snap.WorkerDetails[name] = state
	}
	for i := 0; i < s.logLen; i++ {
		entry := s.logs[(s.logHead+i)%len(s.logs)]
		if entry.Level == LevelError {
			snap.Errors = append(snap.Errors, entry.Message)
		}
	}
	return snap
}
