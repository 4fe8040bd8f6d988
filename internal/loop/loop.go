// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package loop provides a single-goroutine event loop.
//
// Every function posted to a Loop runs on the same goroutine, one at a time,
// in posting order. State owned by the loop therefore needs no locking: the
// loop goroutine is its only writer. Asynchronous work (HTTP calls, timers)
// runs elsewhere and posts its continuation back onto the loop.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Loop runs posted functions serially on one goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once

	log zerolog.Logger
}

// New creates a loop. Call Run to start processing.
func New(log zerolog.Logger) *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		log:  log,
	}
}

// Run processes posted functions until ctx is done or Stop is called.
// It must be called exactly once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.pending = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, fn := range batch {
			select {
			case <-ctx.Done():
				return
			case <-l.stop:
				return
			default:
			}
			l.invoke(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("loop task panicked")
		}
	}()
	fn()
}

// Post schedules fn to run on the loop. It reports false once the loop
// has stopped; fn is then never run.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// After posts fn onto the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Call runs fn on the loop and waits for it to finish. It must not be
// called from the loop goroutine. It reports false if the loop stopped
// before fn ran.
func (l *Loop) Call(fn func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Stop asks the loop to exit. Functions not yet started are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
