package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunExclusiveSharesResult(t *testing.T) {
	c := NewCoordinator(time.Second)
	release := make(chan struct{})
	var runs atomic.Int32

	factory := func(context.Context) (interface{}, error) {
		runs.Add(1)
		<-release
		return "audio", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.RunExclusive(context.Background(), "k", factory)
			if err != nil {
				t.Errorf("RunExclusive() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	waitFor(t, func() bool { return c.InFlight() == 1 })
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if runs.Load() != 1 {
		t.Fatalf("factory runs = %d, want 1", runs.Load())
	}
	for _, v := range results {
		if v != "audio" {
			t.Fatalf("unexpected shared value %v", v)
		}
	}
}

func TestRunExclusiveClearsAfterFailure(t *testing.T) {
	c := NewCoordinator(time.Second)
	boom := stderrors.New("boom")

	_, _, err := c.RunExclusive(context.Background(), "k", func(context.Context) (interface{}, error) {
		return nil, boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}

	v, _, err := c.RunExclusive(context.Background(), "k", func(context.Context) (interface{}, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("retry after failure = %v, %v", v, err)
	}
}

func TestRunExclusiveDetachesFactoryFromCaller(t *testing.T) {
	c := NewCoordinator(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	factoryErr := make(chan error, 1)
	started := make(chan struct{})

	go func() {
		<-started
		cancel()
	}()

	_, _, err := c.RunExclusive(ctx, "k", func(fctx context.Context) (interface{}, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		factoryErr <- fctx.Err()
		return nil, nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("caller should see its own cancellation, got %v", err)
	}
	if ferr := <-factoryErr; ferr != nil {
		t.Fatalf("factory context was cancelled with the caller: %v", ferr)
	}
}

func TestRunExclusiveBudget(t *testing.T) {
	c := NewCoordinator(20 * time.Millisecond)
	_, _, err := c.RunExclusive(context.Background(), "k", func(fctx context.Context) (interface{}, error) {
		<-fctx.Done()
		return nil, fctx.Err()
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected budget deadline, got %v", err)
	}
}

func TestStateTerminal(t *testing.T) {
	if !StateCompleted.Terminal() || !StateFailed.Terminal() || StateLipSyncing.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
}
