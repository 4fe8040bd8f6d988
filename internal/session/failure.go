// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"time"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/httperrors"
	"formplay/cli/internal/telemetry"
)

const reportTimeout = 5 * time.Second

// handleFailure runs the error policy for a request that produced no
// usable response. OnLoadingComplete fires exactly once and blocking is
// released only after every failure callback has run.
func (s *Session) handleFailure(action formplayer.Action, err error, h handlers) {
	offline := !s.deps.Net.Online()
	e := httperrors.Classify(httperrors.Failure{Action: action.String(), Err: err, Offline: offline})

	s.log.Warn().
		Err(err).
		Str("action", action.String()).
		Str("kind", string(e.Kind)).
		Msg("request failed")
	s.report(action, e, httperrors.HTTPStatus(err))

	if offline && action == formplayer.ActionSubmit {
		s.setSubmitControls(true)
	}
	info := ErrorInfo{HumanReadableMessage: e.Message, IsHTML: e.HTML, Kind: e.Kind}
	if h.onFailure != nil {
		h.onFailure(info)
	}
	s.emitError(e)
	s.loadingComplete()
	s.setBlocking(BlockNone)
}

// reportErrorResponse handles an error-status response for requests that
// supply no error-response handler of their own.
func (s *Session) reportErrorResponse(action formplayer.Action, resp *formplayer.Response, h handlers) {
	var e *apperr.E
	if resp.Status == formplayer.StatusTooManyRequests {
		e = apperr.New(apperr.RateLimited, httperrors.MsgRateLimited)
	} else {
		e = apperr.New(apperr.ServerError, httperrors.FormatServerMessage(resp.Exception))
	}
	s.report(action, e, 0)
	if h.onFailure != nil {
		h.onFailure(ErrorInfo{HumanReadableMessage: e.Message, IsHTML: e.HTML, Kind: e.Kind})
	}
	s.emitError(e)
}

// report sends the failure to telemetry without holding up the loop.
func (s *Session) report(action formplayer.Action, e *apperr.E, status int) {
	r := telemetry.NewReport(action.String(), string(e.Kind), e.Error(), status)
	r.Domain = s.opts.Domain
	r.Username = s.opts.Username
	r.RestoreAs = s.opts.RestoreAs
	r.SessionID = s.sessionID
	r.SessionState = s.state.String()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := s.deps.Reporter.Report(ctx, r); err != nil {
			s.log.Debug().Err(err).Msg("telemetry report failed")
		}
	}()
}
