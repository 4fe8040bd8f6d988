// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package telemetry

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"formplay/cli/internal/config"
)

// Options selects and configures the sinks built by New.
type Options struct {
	Config config.TelemetryConfig
	// DSN is the Postgres connection string, kept in the keychain.
	DSN   string
	Token func() string
	Log   zerolog.Logger
}

// New builds the configured reporter. Reports are always logged; the
// postgres and grpc sinks are added on top. The result implements Closer.
func New(ctx context.Context, opts Options) (Multi, error) {
	switch opts.Config.Sink {
	case config.SinkNone:
		return Multi{Nop{}}, nil
	case "", config.SinkLog:
		return Multi{LogReporter{Log: opts.Log}}, nil
	case config.SinkPostgres:
		if opts.DSN == "" {
			return nil, errors.New("telemetry sink postgres needs a DSN; run: formplay login --telemetry-dsn")
		}
		pg, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		return Multi{LogReporter{Log: opts.Log}, pg}, nil
	case config.SinkGRPC:
		g, err := DialGRPC(opts.Config.GRPCAddr, opts.Config.Insecure, opts.Token)
		if err != nil {
			return nil, err
		}
		return Multi{LogReporter{Log: opts.Log}, g}, nil
	}
	return nil, errors.New("unknown telemetry sink " + opts.Config.Sink)
}
