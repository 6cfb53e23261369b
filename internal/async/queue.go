package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-filler/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document/form pair waiting for a fill session.
type Job struct {
	ID          uuid.UUID
	Fill        pipeline.Job
	Source      string // manifest path when the job came from the inbox
	SubmittedAt time.Time
	TraceID     string
}

// NewJob stamps a fill job with an id and submission time.
func NewJob(fill pipeline.Job, source string) Job {
	return Job{
		ID:          uuid.New(),
		Fill:        fill,
		Source:      source,
		SubmittedAt: time.Now().UTC(),
		TraceID:     uuid.NewString(),
	}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Runner executes one fill session. *pipeline.Session implements it.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Outcome, error)
}

// ResultHandler observes every finished job.
type ResultHandler func(job Job, out pipeline.Outcome, err error)
