// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"sync"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

// spinnerFrames are braille frames similar to the docker CLI.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// loadingIndicator shows a spinner while a request is outstanding. The
// session calls Start and Stop from its own goroutine and the prompt loop
// stops it before reading input, so both are guarded.
type loadingIndicator struct {
	mu      sync.Mutex
	enabled bool
	text    string
	sp      *pterm.SpinnerPrinter
}

func newLoadingIndicator(enabled bool, text string) *loadingIndicator {
	return &loadingIndicator{enabled: enabled, text: text}
}

func (l *loadingIndicator) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.sp != nil {
		return
	}
	cursor.Hide()
	sp, err := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		WithSequence(spinnerFrames...).
		Start(l.text)
	if err != nil {
		cursor.Show()
		return
	}
	l.sp = sp
}

func (l *loadingIndicator) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sp == nil {
		return
	}
	_ = l.sp.Stop()
	l.sp = nil
	cursor.Show()
}
