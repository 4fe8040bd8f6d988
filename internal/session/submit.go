// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"sort"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/form"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/httperrors"
)

// MsgFixErrors is shown when the server rejects a submission because of
// per-question errors.
const MsgFixErrors = "Some answers need attention. Fix the highlighted questions and submit again."

// SubmitForm submits every locally valid answer. While a submission is in
// progress further calls are ignored. The request is held back while
// another request is outstanding, polling the guard a bounded number of
// times before sending anyway.
func (s *Session) SubmitForm() {
	s.loop.Post(s.submitForm)
}

func (s *Session) submitForm() {
	if s.submitting {
		s.log.Debug().Msg("submit already in progress")
		return
	}
	if s.tree == nil {
		s.log.Warn().Msg("submit before form loaded")
		return
	}
	s.submitting = true
	s.setState(Submitting)
	s.setSubmitControls(false)
	s.awaitGuard(0)
}

// awaitGuard polls the blocking status on the loop. It only reads it.
func (s *Session) awaitGuard(attempt int) {
	if s.blocking != BlockNone && attempt < s.pollAttempts {
		s.polling = true
		s.loop.After(s.pollInterval, func() { s.awaitGuard(attempt + 1) })
		return
	}
	s.polling = false
	if s.blocking != BlockNone {
		s.log.Debug().Str("blocking", s.blocking.String()).Msg("submitting with request still outstanding")
	}
	s.sendSubmit()
}

func (s *Session) sendSubmit() {
	// Answers are gathered when the request leaves the queue, not now.
	req := formplayer.Deferred(formplayer.ActionSubmit, func() (formplayer.Params, error) {
		answers, prevalidated := form.AccumulateAnswers(s.tree.Nodes)
		return formplayer.Params{
			"answers":      answers,
			"prevalidated": prevalidated,
		}, nil
	})

	sent := s.serverRequest(req, BlockAll, handlers{
		onSuccess: func(resp *formplayer.Response) {
			if resp.Status != formplayer.StatusSuccess {
				s.submitRejected(resp)
				return
			}
			s.submitFinished(true)
			if s.cb.OnSubmit != nil {
				s.cb.OnSubmit(resp)
			}
			s.record()
		},
		onErrorResponse: s.submitRejected,
		onFailure:       func(ErrorInfo) { s.submitFinished(false) },
		onStale: func() {
			s.log.Warn().Msg("submit response was stale, submit again")
			s.submitFinished(false)
		},
	})
	if !sent {
		s.submitFinished(false)
	}
}

// submitRejected surfaces the reasons a submission was not accepted.
func (s *Session) submitRejected(resp *formplayer.Response) {
	errs := resp.ErrorMessages()
	ixs := make([]string, 0, len(errs))
	for ix := range errs {
		ixs = append(ixs, ix)
	}
	sort.Strings(ixs)
	s.tree.SurfaceErrors(ixs, errs)

	var e *apperr.E
	switch {
	case resp.Status == formplayer.StatusTooManyRequests:
		e = apperr.New(apperr.RateLimited, httperrors.MsgRateLimited)
	case resp.Notification != "":
		e = apperr.New(apperr.Notification, resp.Notification)
	case len(errs) > 0:
		e = apperr.New(apperr.ServerValidation, MsgFixErrors)
	case resp.IsError():
		e = apperr.New(apperr.ServerError, httperrors.FormatServerMessage(resp.Exception))
	}
	if e != nil {
		s.report(formplayer.ActionSubmit, e, 0)
		s.emitError(e)
	}
	s.publishReconcile(formplayer.ActionSubmit, resp, s.tree)
	s.submitFinished(false)
}

func (s *Session) submitFinished(ok bool) {
	s.submitting = false
	s.polling = false
	if ok {
		s.setState(Submitted)
		return
	}
	s.setState(Ready)
	s.setSubmitControls(true)
}
