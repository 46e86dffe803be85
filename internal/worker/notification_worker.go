package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/mailer"
	"github.com/spec-kit/adoption-service/internal/observability"
)

// NotificationWorker drains the queue and sends decision emails. Send
// failures are logged and counted; jobs are not retried.
type NotificationWorker struct {
	queue   Queue
	sender  mailer.Sender
	logger  *zap.Logger
	metrics *observability.Metrics
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotificationWorker creates a pool of workers goroutines.
func NewNotificationWorker(queue Queue, sender mailer.Sender, logger *zap.Logger, metrics *observability.Metrics, workers int, timeout time.Duration) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	return &NotificationWorker{
		queue:   queue,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	w.logger.Info("notification workers started", zap.Int("workers", w.workers))
}

// Wait blocks until every worker has returned.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue notification", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.handle(ctx, job)
	}
}

func (w *NotificationWorker) handle(ctx context.Context, job NotificationJob) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	msg := mailer.AdoptionDecision(job.ToEmail, job.ToName, job.PetName, job.Status)
	if err := w.sender.Send(sendCtx, msg); err != nil {
		w.metrics.RecordNotification("failed")
		w.logger.Error("failed to send adoption email",
			zap.String("job_id", job.ID),
			zap.String("adoption_id", job.AdoptionID),
			zap.String("to", job.ToEmail),
			zap.Error(err),
		)
		return
	}
	w.metrics.RecordNotification("sent")
	w.logger.Info("adoption email sent",
		zap.String("job_id", job.ID),
		zap.String("adoption_id", job.AdoptionID),
		zap.String("status", string(job.Status)),
		zap.String("to", job.ToEmail),
	)
}
