// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package formplayer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Status is the status field of a response.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusTooManyRequests Status = "too-many-requests"
	StatusAccepted        Status = "accepted"
)

// QuestionError is a per-question error returned by the service.
type QuestionError struct {
	Type    string
	Message string
}

// Response is a decoded reply. Raw keeps the full body so callers can read
// action-specific fields such as the form tree.
type Response struct {
	Status           Status
	SeqID            *int64
	Errors           map[string]QuestionError
	Notification     string
	SessionID        string
	ShouldAutoSubmit bool
	CurrentIndex     string
	IsAtFirstIndex   bool
	IsAtLastIndex    bool
	Title            string
	Langs            []string
	Exception        string
	Raw              []byte
}

// ErrInvalidResponse is returned for bodies that are not a JSON object.
var ErrInvalidResponse = errors.New("response is not a JSON object")

// ParseResponse decodes a response body.
func ParseResponse(body []byte) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrInvalidResponse
	}

	r := &Response{
		Status:           Status(root.Get("status").String()),
		SessionID:        firstString(root, "session_id", "session-id"),
		ShouldAutoSubmit: root.Get("shouldAutoSubmit").Bool(),
		CurrentIndex:     root.Get("currentIndex").String(),
		IsAtFirstIndex:   root.Get("isAtFirstIndex").Bool(),
		IsAtLastIndex:    root.Get("isAtLastIndex").Bool(),
		Title:            root.Get("title").String(),
		Exception:        root.Get("exception").String(),
		Raw:              body,
	}
	if r.Exception != "" && r.Status == "" {
		r.Status = StatusError
	}

	if seq := root.Get("seq_id"); seq.Exists() {
		if n, ok := seqNumber(seq); ok {
			r.SeqID = &n
		}
	}

	if errs := root.Get("errors"); errs.IsObject() {
		r.Errors = make(map[string]QuestionError)
		errs.ForEach(func(k, v gjson.Result) bool {
			qe := QuestionError{}
			if v.IsObject() {
				qe.Type = v.Get("type").String()
				qe.Message = firstString(v, "reason", "message")
			} else {
				qe.Message = v.String()
			}
			r.Errors[k.String()] = qe
			return true
		})
	}

	if n := root.Get("notification"); n.Exists() {
		if n.IsObject() {
			r.Notification = n.Get("message").String()
		} else {
			r.Notification = n.String()
		}
	}

	for _, l := range root.Get("langs").Array() {
		r.Langs = append(r.Langs, l.String())
	}
	return r, nil
}

// ErrorMessages flattens Errors into an ix to message map.
func (r *Response) ErrorMessages() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for ix, e := range r.Errors {
		out[ix] = e.Message
	}
	return out
}

// IsError reports whether the service marked this response as failed.
func (r *Response) IsError() bool { return r.Status == StatusError }

func seqNumber(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p); s.Exists() && s.Type == gjson.String && s.Str != "" {
			return s.Str
		}
	}
	return ""
}
