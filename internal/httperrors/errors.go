// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies failed form service requests into the error
// taxonomy and renders them for the terminal.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/formplayer"
)

// User-visible messages.
const (
	MsgLockTimeout  = "Another user or device is working in this form right now. Please wait a moment and try again."
	MsgInactivity   = `You have been logged out because of inactivity. Run <code>formplay login</code> and then <a href="formplay://resume">resume this form</a>.`
	MsgTimeout      = "The server took too long to respond. Please check your connection and try again."
	MsgNoInternet   = "You are not connected to the internet. Your work has not been submitted. Reconnect and try again."
	MsgGeneric      = "Something unexpected went wrong. Please try again."
	MsgRateLimited  = "Too many submissions in a short time. Please wait a minute and submit again."
	MsgCouldNotSave = "We could not save this answer. Please try again."
)

// Failure describes one request that did not produce a usable response.
type Failure struct {
	Action  string
	Err     error
	Offline bool
}

// Classify maps a failure onto the error taxonomy. Rules are applied in
// order: 423, 401, transport timeout, offline host, structured server body.
// Anything else is Unexpected.
func Classify(f Failure) *apperr.E {
	status, hasStatus := formplayer.StatusOf(f.Err)
	switch {
	case hasStatus && status == http.StatusLocked:
		return apperr.Wrap(apperr.LockTimeout, MsgLockTimeout, f.Err)
	case hasStatus && status == http.StatusUnauthorized:
		e := apperr.Wrap(apperr.SessionExpired, MsgInactivity, f.Err)
		e.HTML = true
		return e
	case !hasStatus && isTimeoutError(f.Err):
		return apperr.Wrap(apperr.Timeout, MsgTimeout, f.Err)
	case f.Offline:
		return apperr.Wrap(apperr.Offline, MsgNoInternet, f.Err)
	}

	var he *formplayer.HTTPError
	if errors.As(f.Err, &he) {
		if msg := he.ServerMessage(); msg != "" {
			return apperr.Wrap(apperr.ServerError, FormatServerMessage(msg), f.Err)
		}
		if status == http.StatusTooManyRequests {
			return apperr.Wrap(apperr.RateLimited, MsgRateLimited, f.Err)
		}
	}
	return apperr.Wrap(apperr.Unexpected, MsgGeneric, f.Err)
}

// FormatServerMessage turns a server-supplied error message into a
// user-facing sentence.
func FormatServerMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return MsgGeneric
	}
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "!") && !strings.HasSuffix(msg, "?") {
		msg += "."
	}
	return fmt.Sprintf("The server reported a problem: %s", msg)
}

// HTTPStatus returns the status code of a failure, or 0 for transport errors.
func HTTPStatus(err error) int {
	status, _ := formplayer.StatusOf(err)
	return status
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check for net.Error with Timeout()
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Check for timeout in error message
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}
