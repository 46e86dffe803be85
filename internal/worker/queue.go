package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// NotificationJob is one pending adoption decision email.
type NotificationJob struct {
	ID         string                `json:"id"`
	AdoptionID string                `json:"adoption_id"`
	Status     domain.AdoptionStatus `json:"status"`
	ToEmail    string                `json:"to_email"`
	ToName     string                `json:"to_name"`
	PetName    string                `json:"pet_name"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
}

// Queue buffers notification jobs between the workflow and the workers.
type Queue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (NotificationJob, error)
}

// ErrQueueFull is returned by MemoryQueue when its buffer is exhausted.
var ErrQueueFull = errors.New("notification queue full")

// RedisQueue is a Redis list used as a FIFO: LPUSH to enqueue, BRPOP to dequeue.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

// NewRedisQueue creates a queue on key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, poll: time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (NotificationJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return NotificationJob{}, err
		}
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return NotificationJob{}, err
		}
		// res is [key, value].
		var job NotificationJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return NotificationJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// MemoryQueue is an in-process channel queue.
type MemoryQueue struct {
	jobs chan NotificationJob
}

// NewMemoryQueue creates a queue holding up to size jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{jobs: make(chan NotificationJob, size)}
}

// Enqueue never blocks; a full buffer yields ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, job NotificationJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (NotificationJob, error) {
	select {
	case <-ctx.Done():
		return NotificationJob{}, ctx.Err()
	case job := <-q.jobs:
		return job, nil
	}
}
