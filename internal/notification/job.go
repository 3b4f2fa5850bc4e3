package notification

import (
	"context"
	"encoding/json"

	"officehours/internal/queue"
)

// JobType marks queue messages carrying a notification job.
const JobType = "notify"

// Job is the unit of work handed from a state transition to the dispatch
// worker. The transition is already durable by the time a job is published.
type Job struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// QueuePublisher publishes notification jobs onto the shared queue.
type QueuePublisher struct {
	q queue.Queue
}

// NewQueuePublisher wraps a queue backend.
func NewQueuePublisher(q queue.Queue) *QueuePublisher {
	return &QueuePublisher{q: q}
}

// QueueNotification enqueues one job for the worker.
func (p *QueuePublisher) QueueNotification(ctx context.Context, userID, message string) error {
	body, err := json.Marshal(Job{UserID: userID, Message: message})
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, queue.Message{Type: JobType, Body: body})
}

// DecodeJob parses a queue message body back into a Job.
func DecodeJob(body []byte) (Job, error) {
	var job Job
	err := json.Unmarshal(body, &job)
	return job, err
}
