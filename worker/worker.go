// Package worker runs a parse in the background so a caller (typically an
// interactive frontend) stays responsive. The runner holds at most one job in
// flight; submitting while a job is pending fails fast rather than queueing.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/prochot/L5K-Tuner/l5k"
)

// ErrBusy is returned by Submit while a previous job has not finished.
var ErrBusy = errors.New("a parse job is already in flight")

// ErrCanceled is the job error after a successful cancellation.
var ErrCanceled = errors.New("parse job canceled")

// Job is one background parse. Wait on Done, then read Result.
type Job struct {
	ID string

	done chan struct{}

	mu       sync.Mutex
	started  bool
	canceled bool
	result   *l5k.Result
	err      error
}

// Done is closed when the job has finished, failed, or been canceled.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result blocks until the job is done and returns its outcome.
func (j *Job) Result() (*l5k.Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Cancel is best-effort: it only takes effect before the parse has started.
// It reports whether the job was canceled.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started || j.canceled {
		return j.canceled
	}
	j.canceled = true
	j.err = ErrCanceled
	close(j.done)
	return true
}

// begin transitions the job to started unless it was canceled first.
func (j *Job) begin() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.canceled {
		return false
	}
	j.started = true
	return true
}

func (j *Job) finish(res *l5k.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.err = err
	close(j.done)
}

// Runner executes parse jobs one at a time.
type Runner struct {
	log *slog.Logger

	// parse is swappable for tests that need a slow or failing job.
	parse func([]byte) (*l5k.Result, error)

	mu      sync.Mutex
	current *Job
}

// NewRunner returns a runner logging through log, or slog.Default when nil.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log, parse: l5k.Parse}
}

// Submit starts a background parse of src and returns its job. While a job is
// in flight, Submit returns ErrBusy. A context canceled before the parse
// starts cancels the job.
func (r *Runner) Submit(ctx context.Context, src []byte) (*Job, error) {
	r.mu.Lock()
	if r.current != nil {
		select {
		case <-r.current.done:
			// Previous job finished; slot is free.
		default:
			r.mu.Unlock()
			return nil, ErrBusy
		}
	}
	job := &Job{ID: uuid.NewString(), done: make(chan struct{})}
	r.current = job
	r.mu.Unlock()

	r.log.Info("parse submitted", "job_id", job.ID, "bytes", len(src))
	go r.run(ctx, job, src)
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *Job, src []byte) {
	if err := ctx.Err(); err != nil {
		if job.Cancel() {
			r.log.Info("parse canceled before start", "job_id", job.ID)
		}
		return
	}
	if !job.begin() {
		r.log.Info("parse canceled before start", "job_id", job.ID)
		return
	}

	res, err := r.parse(src)
	if err != nil {
		r.log.Error("parse failed", "job_id", job.ID, "error", err)
		job.finish(nil, err)
		return
	}
	r.log.Info("parse finished",
		"job_id", job.ID,
		"tags", res.Project.Tags.Len(),
		"datatypes", res.Project.DataTypes.Len(),
		"instructions", res.Project.Instructions.Len(),
		"programs", res.Project.Programs.Len(),
		"corrections", len(res.Corrections),
		"dropped_statements", res.DroppedStatements,
	)
	job.finish(res, nil)
}
