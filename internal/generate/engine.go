// Package generate owns the asynchronous job lifecycle: submitting a
// prompt to the render service, polling the job until a terminal status,
// animating a cosmetic progress value, and keeping the per-session state
// store that the rendering layer reads.
package generate

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"dreamboard/internal/domain"
)

// jobAPI is the slice of the render client the engine needs.
type jobAPI interface {
	CreateJob(ctx context.Context, message string) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
}

type Options struct {
	PromptMaxChars int
	PromptStyle    string
	PollInterval   time.Duration
	ProgressTick   time.Duration
	MaxWait        time.Duration
}

// Engine drives generation runs. It is safe for concurrent use across
// sessions; per-session ordering is enforced by the Session itself.
type Engine struct {
	client jobAPI
	repo   domain.JobRepository // nil when history is disabled
	logger zerolog.Logger
	opts   Options
}

func NewEngine(client jobAPI, repo domain.JobRepository, logger zerolog.Logger, opts Options) *Engine {
	if opts.PromptMaxChars <= 0 {
		opts.PromptMaxChars = 2000
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ProgressTick <= 0 {
		opts.ProgressTick = 750 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 10 * time.Minute
	}
	return &Engine{client: client, repo: repo, logger: logger, opts: opts}
}

// Submit validates the raw prompt, sends the creation request and, on
// acceptance, starts the poller and progress goroutines. It returns the
// typed error for the caller to render; every failure path leaves the
// session with the in-flight flag cleared and no live timers.
func (e *Engine) Submit(ctx context.Context, s *Session, sessionID, rawPrompt string) error {
	prompt := strings.TrimSpace(rawPrompt)
	if prompt == "" {
		return &domain.ValidationError{Reason: domain.ValidationEmpty}
	}
	if utf8.RuneCountInString(prompt) > e.opts.PromptMaxChars {
		return &domain.ValidationError{Reason: domain.ValidationTooLong, Limit: e.opts.PromptMaxChars}
	}

	// The run outlives the submit request, so it is rooted in a fresh
	// context rather than the request's. MaxWait bounds the whole run.
	runCtx, cancel := context.WithTimeout(context.Background(), e.opts.MaxWait)
	r := s.begin(cancel)

	message := e.templated(prompt)
	job, err := e.client.CreateJob(ctx, message)
	if err != nil {
		s.abort(r, err)
		e.logger.Warn().Err(err).Msg("generate: submission rejected")
		return err
	}

	s.accept(r, job)
	e.recordCreate(sessionID, prompt, job)
	e.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("generate: job accepted")

	go e.animate(runCtx, s, r)
	go e.poll(runCtx, s, r, job.ID)
	return nil
}

// Cancel abandons the session's current run, stopping outstanding polls
// and the progress ticker. The last published job stays visible.
func (e *Engine) Cancel(s *Session) {
	if id := s.currentJobID(); id != "" {
		e.logger.Info().Str("job_id", id).Msg("generate: run cancelled")
	}
	s.stop()
}

// templated wraps the visitor's text in the fixed style template.
func (e *Engine) templated(prompt string) string {
	style := strings.TrimSpace(e.opts.PromptStyle)
	if style == "" {
		return prompt
	}
	return prompt + ", " + style
}

func (e *Engine) recordCreate(sessionID, prompt string, job *domain.Job) {
	if e.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record := &domain.JobRecord{
		ID:        job.ID,
		SessionID: sessionID,
		Prompt:    prompt,
		Status:    job.Status,
		Output:    job.Output,
		Detail:    job.Detail,
	}
	if err := e.repo.Create(ctx, record); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("generate: record job failed")
	}
}

func (e *Engine) recordStatus(job *domain.Job) {
	if e.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.repo.UpdateStatus(ctx, job.ID, job.Status, job.Output, job.Detail); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("generate: update job record failed")
	}
}
