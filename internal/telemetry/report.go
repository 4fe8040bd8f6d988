// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package telemetry ships failure reports for form service requests. Every
// classified failure produces one Report; sinks write it to the log file, a
// Postgres table, or a remote gRPC collector.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"formplay/cli/internal/logging"
)

// Report describes one failed request.
type Report struct {
	ID           string
	Action       string
	Message      string
	HTTPStatus   int
	Kind         string
	Domain       string
	Username     string
	RestoreAs    string
	SessionID    string
	SessionState string
	OccurredAt   time.Time
}

// NewReport fills in the ID and timestamp and masks secrets in message.
func NewReport(action, kind, message string, status int) Report {
	return Report{
		ID:         uuid.NewString(),
		Action:     action,
		Kind:       kind,
		Message:    logging.Mask(message),
		HTTPStatus: status,
		OccurredAt: time.Now().UTC(),
	}
}

// Fields returns the report as a flat map, the shape sent to collectors.
func (r Report) Fields() map[string]any {
	return map[string]any{
		"id":            r.ID,
		"action":        r.Action,
		"message":       r.Message,
		"http_status":   r.HTTPStatus,
		"kind":          r.Kind,
		"domain":        r.Domain,
		"username":      r.Username,
		"restore_as":    r.RestoreAs,
		"session_id":    r.SessionID,
		"session_state": r.SessionState,
		"occurred_at":   r.OccurredAt.Format(time.RFC3339Nano),
	}
}

// Reporter accepts failure reports.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// LogReporter writes reports as structured log lines.
type LogReporter struct {
	Log zerolog.Logger
}

func (l LogReporter) Report(_ context.Context, r Report) error {
	l.Log.Warn().
		Str("report_id", r.ID).
		Str("action", r.Action).
		Str("kind", r.Kind).
		Int("http_status", r.HTTPStatus).
		Str("domain", r.Domain).
		Str("username", r.Username).
		Str("restore_as", r.RestoreAs).
		Str("session_id", logging.Mask("session_id="+r.SessionID)).
		Str("session_state", r.SessionState).
		Msg(r.Message)
	return nil
}

// Nop drops every report.
type Nop struct{}

func (Nop) Report(context.Context, Report) error { return nil }

// Multi fans a report out to several sinks and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, r Report) error {
	var errs []error
	for _, rep := range m {
		if err := rep.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, rep := range m {
		if c, ok := rep.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
