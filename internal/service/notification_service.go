package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/observability"
	"github.com/spec-kit/adoption-service/internal/worker"
)

const enqueueTimeout = 5 * time.Second

// NotificationService turns domain events into queued notification jobs.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      worker.Queue
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue worker.Queue, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAdoptionResolved, n.handleAdoptionResolved)
	n.dispatcher.Subscribe(events.EventAdoptionRequested, n.logEvent)
	n.dispatcher.Subscribe(events.EventAdoptionWithdrawn, n.logEvent)
	n.dispatcher.Subscribe(events.EventPetDeleted, n.logEvent)
}

// handleAdoptionResolved enqueues the decision email. Enqueueing is detached
// from the request so a client disconnect does not drop the job.
func (n *NotificationService) handleAdoptionResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AdoptionResolvedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.RecipientEmail == "" {
		n.logger.Warn("skipping adoption email: no recipient", zap.String("adoption_id", event.AdoptionID))
		n.metrics.RecordNotification("skipped")
		return nil
	}

	job := worker.NotificationJob{
		ID:         uuid.NewString(),
		AdoptionID: event.AdoptionID,
		Status:     payload.Status,
		ToEmail:    payload.RecipientEmail,
		ToName:     payload.RecipientName,
		PetName:    payload.PetName,
		EnqueuedAt: event.Timestamp,
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if err := n.queue.Enqueue(enqueueCtx, job); err != nil {
		n.metrics.RecordNotification("enqueue_failed")
		return fmt.Errorf("enqueue adoption email %s: %w", job.ID, err)
	}

	n.metrics.RecordNotification("queued")
	n.logger.Debug("adoption email queued",
		zap.String("job_id", job.ID),
		zap.String("adoption_id", event.AdoptionID),
		zap.String("status", string(payload.Status)),
	)
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("adoption_id", event.AdoptionID),
		zap.String("pet_id", event.PetID),
		zap.String("actor", event.Actor.UserID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
