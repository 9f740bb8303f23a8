package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the terminal state of one extraction job.
type Result struct {
	JobID      uuid.UUID        `json:"job_id"`
	Status     Status           `json:"status"`
	Recipe     *ExtractedRecipe `json:"recipe,omitempty"`
	Error      string           `json:"error,omitempty"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
}

// Worker consumes the queue with a single loop, so jobs complete in
// priority-then-FIFO order. A failing primary extractor falls back to
// the deterministic keyword extractor, which cannot fail.
type Worker struct {
	queue    *Queue
	primary  Extractor
	fallback Extractor
	logger   *zap.Logger

	mu      sync.RWMutex
	results map[uuid.UUID]*Result

	done chan struct{}
}

// NewWorker creates a worker over the queue. primary may be nil, in
// which case the fallback extractor handles everything.
func NewWorker(queue *Queue, primary Extractor, log *zap.Logger) *Worker {
	return &Worker{
		queue:    queue,
		primary:  primary,
		fallback: KeywordExtractor{},
		logger:   log.Named("extraction-worker"),
		results:  make(map[uuid.UUID]*Result),
		done:     make(chan struct{}),
	}
}

// Submit enqueues a transcript for extraction.
func (w *Worker) Submit(transcript string, priority Priority) (*Job, bool) {
	job := &Job{
		ID:         uuid.New(),
		Transcript: transcript,
		Priority:   priority,
	}
	if !w.queue.Enqueue(job) {
		return nil, false
	}
	w.mu.Lock()
	w.results[job.ID] = &Result{JobID: job.ID, Status: StatusQueued}
	w.mu.Unlock()
	return job, true
}

// Result returns a snapshot of a job's current state. The worker keeps
// mutating its own record as the job progresses, so callers get a copy.
func (w *Worker) Result(jobID uuid.UUID) (Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.results[jobID]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

// Run consumes jobs until the queue closes. Intended to be launched once
// as a goroutine; Stop shuts it down.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		job := w.queue.Dequeue()
		if job == nil {
			return
		}
		w.process(ctx, job)
	}
}

// Stop closes the queue and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.queue.Close()
	<-w.done
}

func (w *Worker) process(ctx context.Context, job *Job) {
	w.setStatus(job.ID, StatusRunning)

	recipe, err := w.extract(ctx, job.Transcript)
	w.mu.Lock()
	result := w.results[job.ID]
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
	} else {
		result.Status = StatusCompleted
		result.Recipe = recipe
	}
	result.FinishedAt = time.Now()
	w.mu.Unlock()

	w.logger.Info("extraction job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(result.Status)))
}

func (w *Worker) extract(ctx context.Context, transcript string) (*ExtractedRecipe, error) {
	if w.primary != nil {
		recipe, err := w.primary.Extract(ctx, transcript)
		if err == nil {
			return recipe, nil
		}
		w.logger.Warn("primary extractor failed, using keyword fallback", zap.Error(err))
	}
	return w.fallback.Extract(ctx, transcript)
}

func (w *Worker) setStatus(jobID uuid.UUID, status Status) {
	w.mu.Lock()
	if r, ok := w.results[jobID]; ok {
		r.Status = status
	}
	w.mu.Unlock()
}
