// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"formplay/cli/internal/xdg"
)

// FileName is the log file created in the state directory.
const FileName = "formplay.log"

// Options configures New.
type Options struct {
	// Level is a zerolog level name; unknown or empty means "info".
	Level string
	// Verbose mirrors log lines to Console in human-readable form.
	Verbose bool
	// Dir holds the log file. Empty means the XDG state directory.
	Dir string
	// Console defaults to stderr.
	Console io.Writer
}

// New builds the process logger. Lines always go to a rotating file; the
// console only receives them when Verbose is set. The returned closer
// flushes and closes the file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = xdg.StateDir(); err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	var w io.Writer = file
	if opts.Verbose {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		w = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen})
	}

	log := zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	return log, file, nil
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
