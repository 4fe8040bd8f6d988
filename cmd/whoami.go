// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"formplay/cli/internal/config"
	"formplay/cli/internal/keychain"
	"formplay/cli/internal/logging"
)

// whoamiCmd shows who forms are filled as and which credentials are in use.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the current user and saved credentials",
	Long: `The whoami command shows the form service, domain and user that forms are
filled as, where the API token comes from, and the telemetry sink in use.
Secrets are masked.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Username == "" {
			pterm.Println("🔒 No user is configured yet!")
			pterm.Println("   Run 'formplay connect' to get started.")
			return nil
		}

		rows := [][]string{
			{"Service", orDash(a.cfg.BaseURL)},
			{"Domain", orDash(a.cfg.Domain)},
			{"User", a.cfg.Username},
			{"Token", tokenSource(a)},
			{"Telemetry", telemetrySummary(a)},
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("👤 " + a.cfg.Username)).
			WithPadding(1).
			Println(renderPairs(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func tokenSource(a *app) string {
	if config.TokenFromEnv() != "" {
		return "from " + config.EnvToken
	}
	if a.keys == nil {
		return "keychain unavailable"
	}
	if _, err := a.keys.LoadToken(); err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return "not set (run: formplay login)"
		}
		return "unreadable: " + err.Error()
	}
	return "saved in keychain"
}

func telemetrySummary(a *app) string {
	tc := a.cfg.Telemetry
	switch tc.Sink {
	case config.SinkPostgres:
		if a.keys == nil {
			return "postgres (keychain unavailable)"
		}
		dsn, err := a.keys.LoadTelemetryDSN()
		if err != nil {
			return "postgres (no DSN, run: formplay login --telemetry-dsn)"
		}
		return "postgres " + logging.Mask(dsn)
	case config.SinkGRPC:
		return fmt.Sprintf("grpc %s", tc.GRPCAddr)
	case "":
		return config.SinkLog
	}
	return tc.Sink
}

func renderPairs(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	out := ""
	for i, r := range rows {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("%-*s  %s", width, r[0], r[1])
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
