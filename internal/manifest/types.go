// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package manifest resolves the action tokens used in form service URLs.
// Tokens come from built-in defaults, optionally overridden by a manifest
// the server publishes at {base_url}/manifest.json, and finally by the
// [actions] table of the config file.
package manifest

import (
	"net/url"
	"strings"
)

// Manifest is the endpoint configuration published by a form service.
type Manifest struct {
	Version   int                `json:"version"`
	Actions   map[string]string  `json:"actions"`
	Telemetry TelemetryEndpoints `json:"telemetry"`
}

// TelemetryEndpoints names where failure reports can be sent.
type TelemetryEndpoints struct {
	Collector string `json:"collector_origin"` // e.g. "grpcs://telemetry.example.org"
}

// DefaultActions returns the tokens used when nothing overrides them,
// keyed by action tag name.
func DefaultActions() map[string]string {
	return map[string]string{
		"NEW_FORM":            "new-form",
		"CURRENT":             "current",
		"ANSWER":              "answer",
		"CLEAR_ANSWER":        "clear-answer",
		"ANSWER_MEDIA":        "answer-media",
		"NEW_REPEAT":          "new-repeat",
		"DELETE_REPEAT":       "delete-repeat",
		"NEXT_QUESTION":       "next_index",
		"PREV_QUESTION":       "prev_index",
		"SUBMIT":              "submit-all",
		"EVALUATE_XPATH":      "evaluate-xpath",
		"CHANGE_LANGUAGE":     "set-lang",
		"QUESTIONS_FOR_INDEX": "get-questions-for-index",
		"FORMATTED_QUESTIONS": "formatted_questions",
	}
}

// Merge layers action tables; later tables win. Keys are normalised to
// upper case and blank tokens are ignored.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, l := range layers {
		for k, v := range l {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			out[strings.ToUpper(strings.TrimSpace(k))] = v
		}
	}
	return out
}

// CollectorAddress extracts host:port of the telemetry collector and
// whether it expects TLS. grpc:// and http:// mean plaintext.
func (m *Manifest) CollectorAddress() (addr string, secure bool) {
	if m == nil || m.Telemetry.Collector == "" {
		return "", false
	}
	u, err := url.Parse(m.Telemetry.Collector)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Host, u.Scheme != "grpc" && u.Scheme != "http"
}
