package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestQueueManagerReturnsJobErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2)
	t.Cleanup(rqm.Shutdown)

	boom := errors.New("boom")
	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { return boom }, Errc: errc})
	if err := <-errc; !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestConversationLanesSerializeSameKey(t *testing.T) {
	lanes := NewConversationLanes(4, 8)
	t.Cleanup(lanes.Shutdown)

	var (
		mu      sync.Mutex
		order   []int
		running int32
		overlap bool
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		// Wait for each job to start so submissions are ordered.
		submitted := make(chan struct{})
		go func(i int) {
			defer wg.Done()
			err := lanes.Do(context.Background(), "LIVE_CHAT#user-1", func() error {
				close(submitted)
				if atomic.AddInt32(&running, 1) > 1 {
					overlap = true
				}
				time.Sleep(time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				atomic.AddInt32(&running, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do error: %v", err)
			}
		}(i)
		<-submitted
	}
	wg.Wait()

	if overlap {
		t.Fatal("jobs for one key ran concurrently")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("job order = %v", order)
		}
	}
}

func TestConversationLanesRunKeysInParallel(t *testing.T) {
	lanes := NewConversationLanes(64, 1)
	t.Cleanup(lanes.Shutdown)

	// Find two keys on different lanes.
	a, b := "LIVE_CHAT#a", ""
	for i := 0; ; i++ {
		b = fmt.Sprintf("LIVE_CHAT#b%d", i)
		if lanes.laneFor(a) != lanes.laneFor(b) {
			break
		}
	}

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- lanes.Do(context.Background(), a, func() error {
			<-release
			return nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := lanes.Do(ctx, b, func() error { return nil }); err != nil {
		t.Fatalf("independent key was blocked: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Do error: %v", err)
	}
}

func TestConversationLanesHonorContextAndShutdown(t *testing.T) {
	lanes := NewConversationLanes(1, 0)

	started, release := make(chan struct{}), make(chan struct{})
	go lanes.Do(context.Background(), "k", func() error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := lanes.Do(ctx, "k", func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(release)
	lanes.Shutdown()
	if err := lanes.Do(context.Background(), "k", func() error { return nil }); !errors.Is(err, ErrLanesClosed) {
		t.Fatalf("expected ErrLanesClosed, got %v", err)
	}
}
