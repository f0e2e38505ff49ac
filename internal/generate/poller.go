package generate

import (
	"context"
	"errors"
	"time"

	"dreamboard/internal/domain"
)

// poll fetches the job status until a terminal state. The delay is fixed
// between the completion of one fetch and the start of the next, so a slow
// response stretches the effective interval instead of stacking requests.
func (e *Engine) poll(ctx context.Context, s *Session, r *run, jobID string) {
	timer := time.NewTimer(e.opts.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.endRun(ctx, s, r, jobID)
			return
		case <-timer.C:
		}

		job, err := e.client.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				e.endRun(ctx, s, r, jobID)
				return
			}
			// Non-200 or transport failure on a poll is a defensive
			// abort, not a retry.
			s.abort(r, err)
			e.logger.Warn().Err(err).Str("job_id", jobID).Msg("generate: poll aborted")
			return
		}

		// Publish before re-evaluating the loop condition so readers
		// never observe a stale job after a completed fetch.
		s.publish(r, job)

		switch {
		case job.Status == domain.StatusSucceeded:
			s.succeed(r)
			e.recordStatus(job)
			e.logger.Info().Str("job_id", jobID).Int("outputs", len(job.Output)).Msg("generate: job succeeded")
			return
		case job.Status.Terminal():
			s.failTerminal(r)
			e.recordStatus(job)
			e.logger.Info().Str("job_id", jobID).Str("detail", job.Detail).Msg("generate: job failed")
			return
		}

		timer.Reset(e.opts.PollInterval)
	}
}

// endRun resolves a run whose context ended. A deadline means the maximum
// wait ceiling was hit and is surfaced as a timeout; a plain cancellation
// means the run was replaced or abandoned and the state is already final.
func (e *Engine) endRun(ctx context.Context, s *Session, r *run, jobID string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.abort(r, domain.ErrPollTimeout)
		e.logger.Warn().Str("job_id", jobID).Msg("generate: poll ceiling reached")
	}
}
