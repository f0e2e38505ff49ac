package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dreamboard/internal/domain"
)

// fakeAPI scripts the render service: one create response and a sequence
// of poll responses (the last entry repeats).
type fakeAPI struct {
	mu          sync.Mutex
	createJob   *domain.Job
	createErr   error
	createCalls int
	polls       []pollStep
	getCalls    int
}

type pollStep struct {
	job *domain.Job
	err error
}

func (f *fakeAPI) CreateJob(ctx context.Context, message string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createJob.Clone(), nil
}

func (f *fakeAPI) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.getCalls
	if idx >= len(f.polls) {
		idx = len(f.polls) - 1
	}
	f.getCalls++
	step := f.polls[idx]
	if step.err != nil {
		return nil, step.err
	}
	return step.job.Clone(), nil
}

func (f *fakeAPI) counts() (creates, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.getCalls
}

func testEngine(api *fakeAPI) *Engine {
	return NewEngine(api, nil, zerolog.Nop(), Options{
		PromptMaxChars: 2000,
		PromptStyle:    "digital illustration",
		PollInterval:   2 * time.Millisecond,
		ProgressTick:   time.Millisecond,
		MaxWait:        time.Second,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}

func job(id string, status domain.JobStatus, output ...string) *domain.Job {
	return &domain.Job{ID: id, Status: status, Output: output}
}

func TestSubmitEmptyPromptNoNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	e := testEngine(api)
	s := NewSession()

	err := e.Submit(context.Background(), s, "sess", "   ")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Reason != domain.ValidationEmpty {
		t.Fatalf("expected empty-prompt validation error, got %v", err)
	}
	if creates, _ := api.counts(); creates != 0 {
		t.Fatalf("validation must fail before any network call, got %d creates", creates)
	}
}

func TestSubmitOverlongPromptNoNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	e := testEngine(api)
	s := NewSession()

	err := e.Submit(context.Background(), s, "sess", strings.Repeat("a", 2001))
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Reason != domain.ValidationTooLong {
		t.Fatalf("expected over-limit validation error, got %v", err)
	}
	if creates, _ := api.counts(); creates != 0 {
		t.Fatalf("validation must fail before any network call, got %d creates", creates)
	}
}

func TestSubmitAcceptedBeginsPolling(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls:     []pollStep{{job: job("p1", domain.StatusProcessing)}},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	snap := s.Snapshot()
	if !snap.InFlight {
		t.Fatalf("in-flight flag should be true after acceptance")
	}
	if snap.Job == nil || snap.Job.ID != "p1" {
		t.Fatalf("job not stored: %+v", snap.Job)
	}
	waitFor(t, func() bool { _, gets := api.counts(); return gets >= 2 })
	e.Cancel(s)
}

func TestSubmitQuotaExceededDoesNotPoll(t *testing.T) {
	api := &fakeAPI{createErr: domain.ErrQuotaExceeded}
	e := testEngine(api)
	s := NewSession()

	err := e.Submit(context.Background(), s, "sess", "a castle")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	snap := s.Snapshot()
	if snap.InFlight {
		t.Fatalf("in-flight flag must be cleared on quota rejection")
	}
	time.Sleep(20 * time.Millisecond)
	if _, gets := api.counts(); gets != 0 {
		t.Fatalf("no polling may begin after a rejected submission, got %d polls", gets)
	}
}

func TestPollSequenceToSucceeded(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls: []pollStep{
			{job: job("p1", domain.StatusProcessing, "/a/1.png")},
			{job: job("p1", domain.StatusProcessing, "/a/1.png", "/a/2.png")},
			{job: job("p1", domain.StatusSucceeded, "/a/1.png", "/a/2.png", "/a/3.png", "/a/4.png")},
		},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	// Partial output must be visible before the terminal state.
	waitFor(t, func() bool {
		snap := s.Snapshot()
		return snap.Job != nil && len(snap.Job.Output) >= 1 && !snap.Job.Status.Terminal()
	})

	waitFor(t, func() bool { return s.Snapshot().Phase == PhaseSucceeded })
	snap := s.Snapshot()
	if snap.Progress != 100 {
		t.Fatalf("progress must be forced to 100 on success, got %d", snap.Progress)
	}
	if snap.InFlight {
		t.Fatalf("in-flight flag must end false on success")
	}
	if len(snap.Job.Output) != 4 {
		t.Fatalf("final output not published: %+v", snap.Job.Output)
	}
	if gallery := snap.Job.Gallery(); gallery[0] != "/a/4.png" {
		t.Fatalf("gallery should be most-recent-first, got %v", gallery)
	}
}

func TestPollSequenceToFailedReleasesTicker(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls: []pollStep{
			{job: job("p1", domain.StatusProcessing)},
			{job: &domain.Job{ID: "p1", Status: domain.StatusFailed, Detail: "NSFW content detected"}},
		},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Phase == PhaseFailed })

	snap := s.Snapshot()
	if snap.InFlight {
		t.Fatalf("in-flight flag must end false on failed status")
	}
	if snap.Job.Detail != "NSFW content detected" {
		t.Fatalf("failure detail lost: %+v", snap.Job)
	}

	// No further increments may happen once the run is terminal.
	frozen := snap.Progress
	time.Sleep(20 * time.Millisecond)
	if got := s.Snapshot().Progress; got != frozen {
		t.Fatalf("progress ticker leaked: %d -> %d after terminal state", frozen, got)
	}
}

func TestPollNon200Aborts(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls: []pollStep{
			{err: &domain.ServiceError{StatusCode: 502, Detail: "upstream worker lost"}},
		},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Phase == PhaseError })

	snap := s.Snapshot()
	var serviceErr *domain.ServiceError
	if !errors.As(snap.Err, &serviceErr) || serviceErr.Detail != "upstream worker lost" {
		t.Fatalf("service detail not surfaced: %v", snap.Err)
	}
	if snap.InFlight {
		t.Fatalf("in-flight flag must be cleared on poll abort")
	}
	_, gets := api.counts()
	time.Sleep(20 * time.Millisecond)
	if _, after := api.counts(); after != gets {
		t.Fatalf("poll loop kept running after abort: %d -> %d", gets, after)
	}
}

func TestProgressCapsAndNeverDecreases(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls:     []pollStep{{job: job("p1", domain.StatusProcessing)}},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	last := -1
	waitFor(t, func() bool {
		snap := s.Snapshot()
		if snap.Progress < last {
			t.Fatalf("progress decreased: %d -> %d", last, snap.Progress)
		}
		if snap.Progress > 100 {
			t.Fatalf("progress exceeded 100: %d", snap.Progress)
		}
		last = snap.Progress
		return snap.Progress == 100
	})

	// Holds at the cap while the job is still non-terminal.
	time.Sleep(10 * time.Millisecond)
	snap := s.Snapshot()
	if snap.Progress != 100 || !snap.InFlight {
		t.Fatalf("progress should hold at 100 while in flight, got %d in_flight=%v", snap.Progress, snap.InFlight)
	}
	e.Cancel(s)
}

func TestPollCeilingYieldsTimeout(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls:     []pollStep{{job: job("p1", domain.StatusProcessing)}},
	}
	e := NewEngine(api, nil, zerolog.Nop(), Options{
		PollInterval: time.Millisecond,
		ProgressTick: time.Millisecond,
		MaxWait:      30 * time.Millisecond,
	})
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Phase == PhaseError })
	if snap := s.Snapshot(); !errors.Is(snap.Err, domain.ErrPollTimeout) || snap.InFlight {
		t.Fatalf("expected timeout with cleared flag, got %+v", snap)
	}
}

func TestResubmissionReplacesJobWholesale(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls:     []pollStep{{job: job("p1", domain.StatusProcessing, "/old.png")}},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "first prompt"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, func() bool {
		snap := s.Snapshot()
		return snap.Job != nil && len(snap.Job.Output) == 1
	})

	api.mu.Lock()
	api.createJob = job("p2", domain.StatusStarting)
	api.polls = []pollStep{{job: job("p2", domain.StatusProcessing)}}
	api.getCalls = 0
	api.mu.Unlock()

	if err := e.Submit(context.Background(), s, "sess", "second prompt"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	snap := s.Snapshot()
	if snap.Job == nil || snap.Job.ID != "p2" {
		t.Fatalf("previous job state must be replaced wholesale, got %+v", snap.Job)
	}
	if len(snap.Job.Output) != 0 {
		t.Fatalf("old output leaked into new job: %v", snap.Job.Output)
	}
	if snap.Progress > 5 {
		t.Fatalf("progress should restart near 0 on resubmission, got %d", snap.Progress)
	}
	e.Cancel(s)
}

func TestCancelStopsOutstandingPolls(t *testing.T) {
	api := &fakeAPI{
		createJob: job("p1", domain.StatusStarting),
		polls:     []pollStep{{job: job("p1", domain.StatusProcessing)}},
	}
	e := testEngine(api)
	s := NewSession()

	if err := e.Submit(context.Background(), s, "sess", "a castle"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, func() bool { _, gets := api.counts(); return gets > 0 })

	e.Cancel(s)
	waitFor(t, func() bool { return !s.Snapshot().InFlight })
	_, gets := api.counts()
	time.Sleep(20 * time.Millisecond)
	if _, after := api.counts(); after > gets+1 {
		t.Fatalf("polls continued after cancel: %d -> %d", gets, after)
	}
}
