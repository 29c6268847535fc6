// Package loop provides the single-threaded UI event loop that every
// document mutation runs on.
//
// Exactly one goroutine drives a Loop, either with Run (long-lived hosts)
// or Drain (scripts and tests). Other goroutines hand work to it with Post,
// After or Do.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Loop is a FIFO task queue with timer support.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	timers int // outstanding After timers not yet queued
	wake   chan struct{}
	logger *slog.Logger
}

// New creates an idle loop.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post queues fn to run on the loop after everything already queued.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// After queues fn once d has elapsed. A non-positive d behaves like Post.
func (l *Loop) After(d time.Duration, fn func()) {
	if d <= 0 {
		l.Post(fn)
		return
	}

	l.mu.Lock()
	l.timers++
	l.mu.Unlock()

	time.AfterFunc(d, func() {
		l.mu.Lock()
		l.timers--
		l.queue = append(l.queue, fn)
		l.mu.Unlock()
		l.signal()
	})
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if task, ok := l.next(); ok {
			l.run(task)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain processes tasks on the calling goroutine until the queue is empty
// and no timers are outstanding.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			pending := l.timers
			l.mu.Unlock()
			if pending == 0 {
				return
			}
			<-l.wake
			continue
		}
		task := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
	}
}

// Pending reports the number of queued tasks plus outstanding timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + l.timers
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue = l.queue[1:]
	return task, true
}

// run executes one task. A panicking task is logged and does not stop the loop.
func (l *Loop) run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("loop: task panicked",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
