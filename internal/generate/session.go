package generate

import (
	"context"
	"sync"

	"dreamboard/internal/domain"
)

// Phase is the client-side lifecycle of a generation run. It advances
// Idle -> Submitting -> Polling and ends in Succeeded, Failed or Error.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
	PhaseError      Phase = "error"
)

// Snapshot is the complete state handed to the rendering layer. Err is the
// typed error for the handler to localize; everything else maps straight
// onto the UI.
type Snapshot struct {
	Phase    Phase
	Job      *domain.Job
	Err      error
	InFlight bool
	Progress int
}

// run identifies one submission's poller and progress goroutines. State
// mutations carry the run they belong to, so goroutines of a replaced run
// can never clobber the state of the run that superseded them.
type run struct {
	cancel context.CancelFunc
}

// Session is the single source of truth for one visitor's current job.
// Exactly one job is active per session; a new submission replaces the
// previous state wholesale. The submission path and the poller are the
// only writers, and every write publishes a complete snapshot.
type Session struct {
	mu       sync.Mutex
	phase    Phase
	job      *domain.Job
	err      error
	inFlight bool
	progress int
	current  *run
}

func NewSession() *Session {
	return &Session{phase: PhaseIdle}
}

// Snapshot returns the latest complete state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:    s.phase,
		Job:      s.job.Clone(),
		Err:      s.err,
		InFlight: s.inFlight,
		Progress: s.progress,
	}
}

// begin replaces any previous run: it cancels outstanding poll and
// progress work, discards the old job and error, and resets progress to 0.
func (s *Session) begin(cancel context.CancelFunc) *run {
	r := &run{cancel: cancel}
	s.mu.Lock()
	var prevCancel context.CancelFunc
	if s.current != nil {
		prevCancel = s.current.cancel
	}
	s.current = r
	s.phase = PhaseSubmitting
	s.job = nil
	s.err = nil
	s.inFlight = true
	s.progress = 0
	s.mu.Unlock()
	if prevCancel != nil {
		prevCancel()
	}
	return r
}

// accept records the job returned by the creation endpoint and moves to
// polling. The id recorded here is never reassigned.
func (s *Session) accept(r *run, job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r {
		return
	}
	s.phase = PhasePolling
	s.job = job.Clone()
}

// publish replaces the job snapshot with a freshly polled one, so partial
// output becomes visible before the terminal state.
func (s *Session) publish(r *run, job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r {
		return
	}
	s.job = job.Clone()
}

// succeed ends the run on a succeeded terminal status: progress is forced
// to 100 and the in-flight flag cleared.
func (s *Session) succeed(r *run) {
	if s.finish(r, PhaseSucceeded, nil) {
		s.mu.Lock()
		s.progress = 100
		s.mu.Unlock()
	}
}

// failTerminal ends the run on a failed terminal status. Cleanup is
// symmetric with succeed: flag cleared, ticker released.
func (s *Session) failTerminal(r *run) {
	s.finish(r, PhaseFailed, nil)
}

// abort ends the run with a client-side error (validation, quota, service,
// transport or timeout).
func (s *Session) abort(r *run, err error) {
	s.finish(r, PhaseError, err)
}

// stop abandons the current run, whichever it is, without recording an
// error. The last published job stays visible.
func (s *Session) stop() {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r != nil {
		s.finish(r, PhaseIdle, nil)
	}
}

// finish ends run r if it is still the current one. It reports whether the
// transition applied. Releasing the run context stops the poller and the
// progress ticker; CancelFunc is idempotent so racing paths are harmless.
func (s *Session) finish(r *run, phase Phase, err error) bool {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		return false
	}
	s.current = nil
	s.phase = phase
	s.err = err
	s.inFlight = false
	s.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

// bump increments the cosmetic progress value. It holds at 100 and never
// moves once the run is no longer current.
func (s *Session) bump(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || !s.inFlight {
		return
	}
	if s.progress < 100 {
		s.progress++
	}
}

// currentJobID reports the id the session is polling for, if any.
func (s *Session) currentJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ""
	}
	return s.job.ID
}

// Sessions hands out one Session per opaque session id.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating it on first use.
func (m *Sessions) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = NewSession()
		m.sessions[id] = s
	}
	return s
}
