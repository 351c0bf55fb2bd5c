package rag

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ragcore/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxRetainedJobs bounds how many jobs stay addressable by ID.
const maxRetainedJobs = 1000

// ErrServiceClosed is set on jobs submitted after Close.
var ErrServiceClosed = errors.New("service is closed")

// JobStatus is the lifecycle state of an ingest job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobState is a point-in-time view of a job.
type JobState struct {
	ID          string               `json:"job_id"`
	DocumentID  string               `json:"document_id"`
	Status      JobStatus            `json:"status"`
	Result      *models.IngestResult `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	FinishedAt  *time.Time           `json:"finished_at,omitempty"`
}

// Job is a handle to an asynchronous ingest.
type Job struct {
	id         string
	documentID string
	submitted  time.Time
	done       chan struct{}

	mu       sync.Mutex
	status   JobStatus
	result   *models.IngestResult
	err      error
	finished time.Time
}

func newJob(input *models.DocumentInput) *Job {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	return &Job{
		id:         uuid.New().String(),
		documentID: input.ID,
		submitted:  time.Now(),
		done:       make(chan struct{}),
		status:     JobQueued,
	}
}

// ID returns the job ID.
func (j *Job) ID() string { return j.id }

// DocumentID returns the ID the document will be stored under.
func (j *Job) DocumentID() string { return j.documentID }

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (*models.IngestResult, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns the current state.
func (j *Job) Status() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobState{
		ID:          j.id,
		DocumentID:  j.documentID,
		Status:      j.status,
		Result:      j.result,
		SubmittedAt: j.submitted,
	}
	if j.err != nil {
		st.Error = j.err.Error()
	}
	if !j.finished.IsZero() {
		f := j.finished
		st.FinishedAt = &f
	}
	return st
}

func (j *Job) start() {
	j.mu.Lock()
	j.status = JobRunning
	j.mu.Unlock()
}

func (j *Job) finish(res *models.IngestResult, err error) {
	j.mu.Lock()
	j.result, j.err = res, err
	j.status = JobSucceeded
	if err != nil {
		j.status = JobFailed
	}
	j.finished = time.Now()
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) isDone() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// jobRunner executes jobs on a bounded errgroup and keeps recent jobs addressable by ID.
type jobRunner struct {
	group   errgroup.Group
	pending sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*Job
	order  []string
	closed bool
}

func newJobRunner(workers int) *jobRunner {
	r := &jobRunner{jobs: make(map[string]*Job)}
	r.group.SetLimit(workers)
	return r
}

func (r *jobRunner) submit(job *Job, run func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		job.finish(nil, ErrServiceClosed)
		return
	}
	r.jobs[job.id] = job
	r.order = append(r.order, job.id)
	r.evictLocked()
	r.pending.Add(1)
	r.mu.Unlock()

	// Group.Go blocks while every worker is busy, so hand off from a goroutine.
	go func() {
		defer r.pending.Done()
		r.group.Go(func() error {
			run()
			return nil
		})
	}()
}

func (r *jobRunner) get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// evictLocked drops the oldest finished jobs beyond maxRetainedJobs.
func (r *jobRunner) evictLocked() {
	if len(r.order) <= maxRetainedJobs {
		return
	}
	kept := r.order[:0]
	excess := len(r.order) - maxRetainedJobs
	for _, id := range r.order {
		if excess > 0 && r.jobs[id].isDone() {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *jobRunner) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.pending.Wait()
	_ = r.group.Wait()
}
