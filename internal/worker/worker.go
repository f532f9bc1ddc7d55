// Package worker replays recording commits that failed while a session was being stopped.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/pkg/queue"
)

// JobQueue is the subset of queue.Queue the worker needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Replayer persists a queued recording commit. It must tolerate duplicates.
type Replayer interface {
	Replay(ctx context.Context, p queue.RecordingCommitPayload) error
}

// CommitProcessor drains the recording commit queue.
type CommitProcessor struct {
	queue    JobQueue
	replayer Replayer
	backoff  time.Duration
	logger   *zap.Logger
}

// NewCommitProcessor creates a processor. backoff <= 0 uses queue.RetryBackoff.
func NewCommitProcessor(q JobQueue, replayer Replayer, backoff time.Duration, logger *zap.Logger) *CommitProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = queue.RetryBackoff
	}
	return &CommitProcessor{queue: q, replayer: replayer, backoff: backoff, logger: logger}
}

// Process executes one job.
func (p *CommitProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRecordingCommit {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RecordingCommitPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.replayer.Replay(ctx, payload); err != nil {
		return fmt.Errorf("replay commit: %w", err)
	}
	p.logger.Info("recording commit replayed",
		zap.String("job_id", job.ID),
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}

// Run dequeues and processes jobs until ctx is done. Failed jobs go back through Retry.
func (p *CommitProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("recording commit worker stopping")
			return
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("dequeue error", zap.Error(err))
			}
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *CommitProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
