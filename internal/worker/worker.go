// Package worker runs queued background jobs: external recording asset
// deletion and notification emails.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/internal/recordings"
	"github.com/coursemeet/backend/pkg/mailer"
	"github.com/coursemeet/backend/pkg/queue"
)

// Purger removes a recording source with its hosted asset.
type Purger interface {
	PurgeNow(ctx context.Context, sourceID int64) error
}

// Mailer delivers emails.
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// EmailLogs records delivery attempts.
type EmailLogs interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// JobQueue is the job source.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Processor executes jobs from the queue.
type Processor struct {
	purger  Purger
	mailer  Mailer
	logs    EmailLogs
	queue   JobQueue
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration
}

// NewProcessor creates a job processor.
func NewProcessor(purger Purger, m Mailer, logs EmailLogs, q JobQueue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		purger:  purger,
		mailer:  m,
		logs:    logs,
		queue:   q,
		logger:  logger,
		now:     time.Now,
		backoff: queue.RetryBackoff,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeAssetDelete:
		var payload queue.AssetDeletePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.deleteAsset(ctx, payload)
	case queue.JobTypeNotification:
		var payload queue.NotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sendNotification(ctx, job.Attempt, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) deleteAsset(ctx context.Context, payload queue.AssetDeletePayload) error {
	err := p.purger.PurgeNow(ctx, payload.SourceID)
	if errors.Is(err, recordings.ErrNotDeletable) {
		// A recording of the source was restored after the purge was queued.
		p.logger.Warn("skipping purge of source in use", zap.Int64("source_id", payload.SourceID))
		return nil
	}
	if err != nil {
		return err
	}
	p.logger.Info("asset delete completed", zap.Int64("source_id", payload.SourceID), zap.String("provider", payload.Provider))
	return nil
}

func (p *Processor) sendNotification(ctx context.Context, attempt int, payload queue.NotificationPayload) error {
	el := &models.EmailLog{
		UserID:         payload.UserID,
		EmailType:      payload.Name,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Attempt:        attempt,
	}
	var sendErr error
	switch {
	case p.mailer == nil || !p.mailer.Enabled():
		el.Status = models.EmailLogStatusSkipped
	default:
		sendErr = p.mailer.Send(ctx, mailer.Message{To: payload.RecipientEmail, Subject: payload.Subject, BodyHTML: payload.BodyHTML})
		if sendErr != nil {
			el.Status = models.EmailLogStatusFailed
			el.ErrorMessage = sendErr.Error()
		} else {
			now := p.now()
			el.Status = models.EmailLogStatusSent
			el.SentAt = &now
		}
	}
	if p.logs != nil {
		if err := p.logs.Create(ctx, el); err != nil {
			p.logger.Error("write email log failed", zap.String("user_id", payload.UserID.String()), zap.Error(err))
		}
	}
	return sendErr
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
