// Package queue holds print jobs between receipt from the bus and delivery
// to the printer. The queue is unbounded, FIFO and in-memory only: a job
// lost to a restart is reprinted by whoever submitted it.
package queue

import "sync"

// Job is one pending print job. ID is the externally supplied identifier
// used only to correlate the result message; it is not assumed unique.
// Payload is written to the printer verbatim.
type Job struct {
	ID      string
	Payload []byte
}

// Queue is a FIFO of pending jobs. The bus client delivers inbound
// messages on its own goroutine while the run loop drains on another, so
// access is serialized with a mutex.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a job to the tail.
func (q *Queue) Enqueue(j Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, j)
}

// DequeueOne pops the head job, reporting false when the queue is empty.
func (q *Queue) DequeueOne() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
