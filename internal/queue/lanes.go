package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
)

var ErrLanesClosed = errors.New("queue: lanes closed")

type laneJob struct {
	fn   func() error
	errc chan error
}

// ConversationLanes runs jobs with the same key one at a time, in submission
// order. Keys are hashed onto a fixed number of single-worker lanes, so
// distinct keys usually run in parallel.
type ConversationLanes struct {
	lanes []chan laneJob
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewConversationLanes(count, depth int) *ConversationLanes {
	if count < 1 {
		count = 1
	}
	l := &ConversationLanes{lanes: make([]chan laneJob, count)}
	for i := range l.lanes {
		l.lanes[i] = make(chan laneJob, depth)
		l.wg.Add(1)
		go l.run(l.lanes[i])
	}
	return l
}

func (l *ConversationLanes) run(lane chan laneJob) {
	defer l.wg.Done()
	for job := range lane {
		job.errc <- job.fn()
	}
}

func (l *ConversationLanes) laneFor(key string) chan laneJob {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.lanes[h.Sum32()%uint32(len(l.lanes))]
}

// Do runs fn on the lane owning key and waits for it. If ctx ends first Do
// returns ctx.Err(); a job already queued still runs.
func (l *ConversationLanes) Do(ctx context.Context, key string, fn func() error) error {
	job := laneJob{fn: fn, errc: make(chan error, 1)}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrLanesClosed
	}
	select {
	case l.laneFor(key) <- job:
		l.mu.RUnlock()
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-job.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (l *ConversationLanes) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, lane := range l.lanes {
		close(lane)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
