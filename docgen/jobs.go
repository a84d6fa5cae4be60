package docgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gemfashion/storefront/core"
)

// Status of a documentation job
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is the persisted record of one run
type Job struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Status     Status     `json:"status"`
	Steps      []Step     `json:"steps"`
	Markdown   string     `json:"markdown,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Jobs runs generator jobs and keeps their records in a core.Memory
type Jobs struct {
	gen    *Generator
	memory core.Memory
	ttl    time.Duration
	logger core.Logger

	mu sync.Mutex
}

// NewJobs creates a job registry. Records expire ttl after their last write.
func NewJobs(gen *Generator, memory core.Memory, ttl time.Duration, logger core.Logger) *Jobs {
	return &Jobs{
		gen:    gen,
		memory: memory,
		ttl:    ttl,
		logger: core.ForComponent(logger, "storefront/docgen"),
	}
}

func jobKey(id string) string {
	return core.DocJobKeyPrefix + id
}

func (j *Jobs) save(ctx context.Context, job *Job) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(job)
	if err == nil {
		err = j.memory.Set(ctx, jobKey(job.ID), string(data), j.ttl)
	}
	if err != nil {
		j.logger.ErrorWithContext(ctx, "Failed to persist documentation job", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

// Run starts a job for url and blocks until it finishes. progress is called
// with the job record after every step. The returned job is final; err is the
// generator error for failed jobs.
func (j *Jobs) Run(ctx context.Context, url string, progress func(*Job, Event)) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    StatusRunning,
		Steps:     []Step{},
		CreatedAt: time.Now().UTC(),
	}
	store := context.WithoutCancel(ctx)
	j.save(store, job)

	j.logger.InfoWithContext(ctx, "Documentation job started", map[string]interface{}{
		"job_id": job.ID,
		"url":    url,
	})

	res, err := j.gen.Generate(ctx, url, func(ev Event) {
		job.Steps = append(job.Steps, ev.Step)
		j.save(store, job)
		if progress != nil {
			progress(job, ev)
		}
	})

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = StatusFailed
		job.Error = errorMessage(err)
	} else {
		job.Status = StatusSucceeded
		job.Markdown = res.Markdown
	}
	j.save(store, job)
	return job, err
}

func errorMessage(err error) string {
	var se *core.StoreError
	switch {
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.Is(err, context.Canceled):
		return "Generation cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out."
	default:
		return "Documentation generation failed."
	}
}

// Get loads a job record
func (j *Jobs) Get(ctx context.Context, id string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("job %q: %w", id, core.ErrJobNotFound)
	}
	raw, err := j.memory.Get(ctx, jobKey(id))
	if err != nil {
		return nil, core.NewStoreError("docgen.Get", core.KindStorage, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("job %q: %w", id, core.ErrJobNotFound)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, core.NewStoreError("docgen.Get", core.KindStorage, fmt.Errorf("%v: %w", err, core.ErrCorruptValue))
	}
	return &job, nil
}
