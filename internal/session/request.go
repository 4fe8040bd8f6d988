// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/taskqueue"
)

// handlers are the continuations of one request. Any of them may be nil.
type handlers struct {
	onSuccess func(*formplayer.Response)
	// onFailure runs after a transport failure has been classified.
	onFailure func(ErrorInfo)
	// onErrorResponse receives responses whose status is not success.
	// When nil, such responses are reported through the failure path.
	onErrorResponse func(*formplayer.Response)
	// onStale runs when the response is discarded as stale. It must not
	// touch the tree; it only settles request bookkeeping.
	onStale func()
}

// serverRequest queues req under its action and sends it when the queue
// reaches it. It must run on the loop. It reports false when the request
// was dropped because a BlockAll request is outstanding.
func (s *Session) serverRequest(req formplayer.Request, blocking Blocking, h handlers) bool {
	if s.blocking == BlockAll {
		s.log.Debug().Str("action", req.Action.String()).Msg("dropped request while blocked")
		return false
	}
	s.setBlocking(blocking)
	s.loading()

	key := req.Action.String()
	if req.Action == formplayer.ActionSubmit {
		s.outstanding -= s.queue.Clear(key)
	}

	s.outstanding++
	s.queue.Add(taskqueue.Task{
		Action: key,
		Run: func(done func()) error {
			params, err := req.Resolve()
			if err != nil {
				s.outstanding--
				s.handleFailure(req.Action, err, h)
				return err
			}
			ectx := s.envelopeContext()
			s.bg.Add(1)
			go func() {
				defer s.bg.Done()
				resp, err := s.deps.Transport.Send(s.ctx, req.Action, ectx, params)
				s.loop.Post(func() {
					defer done()
					s.outstanding--
					if err != nil {
						s.handleFailure(req.Action, err, h)
						return
					}
					s.handleResponse(req.Action, resp, h)
				})
			}()
			return nil
		},
	})
	return true
}

// handleResponse applies a response that arrived over HTTP. A response
// older than the last applied one is dropped: its payload is ignored but
// the request still completes, so the loading indicator clears and the
// guard is released once nothing else is in flight.
func (s *Session) handleResponse(action formplayer.Action, resp *formplayer.Response, h handlers) {
	if !s.seq.Accept(resp.SeqID) {
		s.log.Debug().
			Str("action", action.String()).
			Int64("seq_id", *resp.SeqID).
			Int64("last_seq", s.seq.Last()).
			Msg("discarded stale response")
		if h.onStale != nil {
			h.onStale()
		}
		if s.outstanding == 0 {
			s.setBlocking(BlockNone)
		}
		s.loadingComplete()
		return
	}
	s.setSessionID(resp.SessionID)

	if resp.IsError() || resp.Status == formplayer.StatusTooManyRequests {
		if h.onErrorResponse != nil {
			h.onErrorResponse(resp)
		} else {
			s.reportErrorResponse(action, resp, h)
		}
	} else if h.onSuccess != nil {
		h.onSuccess(resp)
	}

	s.setBlocking(BlockNone)
	s.loadingComplete()
}
