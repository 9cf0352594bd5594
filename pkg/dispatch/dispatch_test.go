// Package dispatch 提供按用户有序的消息分发
package dispatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

// setupTestDispatcher 创建测试分发器
func setupTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	d := NewDispatcher(logger, opts)
	if err := d.Start(); err != nil {
		t.Fatalf("Failed to start dispatcher: %v", err)
	}
	return d
}

func TestDispatcher_SameUserOrdering(t *testing.T) {
	d := setupTestDispatcher(t, Options{})
	defer d.Stop()

	const jobs = 50
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < jobs; i++ {
		i := i
		err := d.Submit(context.Background(), "u1", func(ctx context.Context) {
			mu.Lock()
			order = append(order, i)
			if len(order) == jobs {
				close(done)
			}
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Failed to submit job %d: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for jobs")
	}

	// 同一用户严格按提交顺序执行
	for i, got := range order {
		if got != i {
			t.Fatalf("Expected job %d at position %d, got %d", i, i, got)
		}
	}
}

func TestDispatcher_DistinctUsersRunConcurrently(t *testing.T) {
	d := setupTestDispatcher(t, Options{})
	defer d.Stop()

	release := make(chan struct{})
	started := make(chan string, 2)

	for _, userID := range []string{"u1", "u2"} {
		userID := userID
		err := d.Submit(context.Background(), userID, func(ctx context.Context) {
			started <- userID
			<-release
		})
		if err != nil {
			t.Fatalf("Failed to submit for %s: %v", userID, err)
		}
	}

	// 两个用户的任务在互不等待的情况下同时开始
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("Expected both user jobs to start concurrently")
		}
	}
	close(release)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := setupTestDispatcher(t, Options{QueueSize: 1})
	defer d.Stop()

	block := make(chan struct{})
	defer close(block)

	// 第一个任务占住 worker，第二个占满队列
	running := make(chan struct{})
	if err := d.Submit(context.Background(), "u1", func(ctx context.Context) {
		close(running)
		<-block
	}); err != nil {
		t.Fatalf("Failed to submit first job: %v", err)
	}
	<-running

	if err := d.Submit(context.Background(), "u1", func(ctx context.Context) {}); err != nil {
		t.Fatalf("Failed to submit second job: %v", err)
	}

	err := d.Submit(context.Background(), "u1", func(ctx context.Context) {})
	if err != ErrQueueFull {
		t.Errorf("Expected queue full error, got %v", err)
	}
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	d := setupTestDispatcher(t, Options{})
	d.Stop()

	err := d.Submit(context.Background(), "u1", func(ctx context.Context) {})
	if err != ErrDispatcherStopped {
		t.Errorf("Expected stopped error, got %v", err)
	}
}

func TestDispatcher_StopDrainsQueuedJobs(t *testing.T) {
	d := setupTestDispatcher(t, Options{})

	var mu sync.Mutex
	completed := 0
	for i := 0; i < 10; i++ {
		err := d.Submit(context.Background(), "u1", func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			completed++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Failed to submit job %d: %v", i, err)
		}
	}

	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if completed != 10 {
		t.Errorf("Expected all queued jobs to complete before stop returned, got %d", completed)
	}
}

func TestDispatcher_SkipsJobWithCancelledContext(t *testing.T) {
	d := setupTestDispatcher(t, Options{})
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{}, 1)
	if err := d.Submit(ctx, "u1", func(ctx context.Context) {
		ran <- struct{}{}
	}); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}

	select {
	case <-ran:
		t.Error("Expected job with cancelled context to be skipped")
	case <-time.After(100 * time.Millisecond):
	}
}
