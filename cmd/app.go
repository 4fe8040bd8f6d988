// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"formplay/cli/internal/config"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/keychain"
	"formplay/cli/internal/logging"
	"formplay/cli/internal/manifest"
	"formplay/cli/internal/telemetry"
)

// app carries what every command needs: settings, the logger and the
// keychain. The keychain may be nil when no backend is available.
type app struct {
	cfg  config.Config
	log  zerolog.Logger
	logs io.Closer
	keys *keychain.Manager
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose})
	if err != nil {
		// The state directory is unusable; keep going without a log file.
		log = zerolog.Nop()
	}
	a := &app{cfg: cfg, log: log, logs: closer}

	if km, err := keychain.GetManager(); err == nil {
		a.keys = km
	} else {
		log.Debug().Err(err).Msg("keychain unavailable")
	}
	return a, nil
}

func (a *app) close() {
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// token returns the bearer token, preferring the environment.
func (a *app) token() string {
	if t := config.TokenFromEnv(); t != "" {
		return t
	}
	if a.keys == nil {
		return ""
	}
	t, err := a.keys.LoadToken()
	if err != nil {
		return ""
	}
	return t
}

func (a *app) fetcher() manifest.Fetcher {
	return manifest.Fetcher{
		Client:       &http.Client{Timeout: a.cfg.RequestTimeout()},
		PublicKeyPEM: a.cfg.ManifestPublicKey,
		UserAgent:    userAgent(),
	}
}

// client resolves the action tokens and builds the form service client.
func (a *app) client(ctx context.Context) (*formplayer.Client, *manifest.Manifest, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	tokens, m, err := manifest.Resolve(ctx, manifest.Options{
		BaseURL:   a.cfg.BaseURL,
		Fetch:     a.cfg.FetchManifest,
		Fetcher:   a.fetcher(),
		Overrides: a.cfg.Actions,
		Log:       a.log,
	})
	if err != nil {
		return nil, nil, err
	}
	c, err := formplayer.NewClient(formplayer.Options{
		BaseURL:           a.cfg.BaseURL,
		Tokens:            tokens,
		Timeout:           a.cfg.RequestTimeout(),
		RequestsPerSecond: a.cfg.RequestsPerSecond,
		AuthToken:         a.token,
		UserAgent:         userAgent(),
		Log:               a.log,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, m, nil
}

// reporter builds the telemetry sinks. A sink that cannot be opened is
// logged and replaced by the log reporter so filling can proceed.
func (a *app) reporter(ctx context.Context, m *manifest.Manifest) telemetry.Multi {
	tc := a.cfg.Telemetry
	if tc.Sink == config.SinkGRPC && tc.GRPCAddr == "" {
		addr, secure := m.CollectorAddress()
		tc.GRPCAddr = addr
		tc.Insecure = !secure
	}
	dsn := ""
	if tc.Sink == config.SinkPostgres && a.keys != nil {
		dsn, _ = a.keys.LoadTelemetryDSN()
	}

	rep, err := telemetry.New(ctx, telemetry.Options{Config: tc, DSN: dsn, Token: a.token, Log: a.log})
	if err != nil {
		a.log.Warn().Err(err).Str("sink", tc.Sink).Msg("telemetry sink unavailable, logging failures only")
		return telemetry.Multi{telemetry.LogReporter{Log: a.log}}
	}
	return rep
}
