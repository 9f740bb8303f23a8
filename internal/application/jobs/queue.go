// Package jobs runs queued transcript-to-recipe extraction with a
// priority-then-FIFO queue consumed by a single worker loop.
package jobs

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority orders jobs ahead of FIFO position.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Status tracks a job through its lifecycle.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one queued extraction request.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Transcript string    `json:"-"`
	Priority   Priority  `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	seq uint64
}

type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

// Less orders by priority first, then FIFO by enqueue sequence.
func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*Job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// Queue is a bounded priority queue with FIFO ordering within a
// priority level.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	jobs     jobHeap
	nextSeq  uint64
	maxSize  int
	closed   bool
}

// NewQueue creates a queue bounded at maxSize pending jobs.
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = 128
	}
	q := &Queue{maxSize: maxSize}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a job, returning false when the queue is full or closed.
func (q *Queue) Enqueue(job *Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.jobs) >= q.maxSize {
		return false
	}
	job.seq = q.nextSeq
	q.nextSeq++
	job.EnqueuedAt = time.Now()
	heap.Push(&q.jobs, job)
	q.notEmpty.Signal()
	return true
}

// Dequeue blocks until a job is available or the queue is closed, in
// which case it returns nil.
func (q *Queue) Dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.jobs) == 0 {
		return nil
	}
	return heap.Pop(&q.jobs).(*Job)
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close wakes any blocked consumer and rejects further enqueues.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}
