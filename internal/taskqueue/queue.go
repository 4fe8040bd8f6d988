// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package taskqueue serializes asynchronous work per action type.
//
// Tasks sharing a key run in FIFO order with at most one of them in flight.
// Tasks under different keys run independently of each other. A Queue is not
// safe for concurrent use; it is owned by the session loop.
package taskqueue

import (
	"github.com/rs/zerolog"
)

// Task is one queued unit of work.
type Task struct {
	// Action is the queue key, usually the action tag.
	Action string
	// Run performs the synchronous build phase and starts the asynchronous
	// part. It must call done exactly once when that part completes. A
	// non-nil error means the task failed synchronously; done need not be
	// called and the next task of the key starts.
	Run func(done func()) error
}

// Queue holds pending tasks keyed by action.
type Queue struct {
	pending map[string][]Task
	running map[string]bool
	log     zerolog.Logger
}

// New creates an empty queue.
func New(log zerolog.Logger) *Queue {
	return &Queue{
		pending: make(map[string][]Task),
		running: make(map[string]bool),
		log:     log,
	}
}

// Add appends t under its key and starts it when the key is idle.
func (q *Queue) Add(t Task) {
	q.pending[t.Action] = append(q.pending[t.Action], t)
	q.execute(t.Action)
}

// Clear drops every not-yet-started task for action and returns how many
// were dropped. A task already in flight is unaffected.
func (q *Queue) Clear(action string) int {
	n := len(q.pending[action])
	delete(q.pending, action)
	if n > 0 {
		q.log.Debug().Str("action", action).Int("dropped", n).Msg("cleared queued tasks")
	}
	return n
}

// Pending reports how many tasks wait under action.
func (q *Queue) Pending(action string) int { return len(q.pending[action]) }

// Running reports whether a task of action is in flight.
func (q *Queue) Running(action string) bool { return q.running[action] }

func (q *Queue) execute(action string) {
	for !q.running[action] && len(q.pending[action]) > 0 {
		t := q.pending[action][0]
		q.pending[action] = q.pending[action][1:]
		if len(q.pending[action]) == 0 {
			delete(q.pending, action)
		}
		q.running[action] = true

		finished := false
		done := func() {
			if finished {
				return
			}
			finished = true
			q.running[action] = false
			q.execute(action)
		}

		if err := t.Run(done); err != nil {
			q.log.Warn().Err(err).Str("action", action).Msg("task failed before send")
			if !finished {
				finished = true
				q.running[action] = false
			}
		}
	}
}
