// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"formplay/cli/internal/config"
	"formplay/cli/internal/telemetry"
	"formplay/cli/internal/terminal"
)

var loginOpts struct {
	token        string
	telemetryDSN bool
	open         bool
}

// loginCmd stores the API token used to talk to the form service.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store the API token for the form service",
	Long: `The login command saves the API token used for every request to the form
service in the OS keychain. Pass it with --token or type it when prompted.
With --open the service's web interface is opened so a token can be created.

With --telemetry-dsn the command instead asks for the PostgreSQL connection
string of the failure-report database, checks that it can connect, and stores
it in the keychain for the "postgres" telemetry sink.

The ` + config.EnvToken + ` environment variable, when set, takes precedence over
the stored token.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		if a.keys == nil {
			return errors.New("no keychain is available on this system; set " + config.EnvToken + " instead")
		}
		if loginOpts.telemetryDSN {
			return saveTelemetryDSN(cmd.Context(), a)
		}

		if loginOpts.open && a.cfg.BaseURL != "" {
			fmt.Printf("Opening %s to create a token...\n\n", a.cfg.BaseURL)
			openBrowser(a.cfg.BaseURL)
		}
		token := strings.TrimSpace(loginOpts.token)
		if token == "" {
			if token, err = terminal.ReadSecret("API token: "); err != nil {
				return err
			}
		}
		if token == "" {
			return errors.New("no token given")
		}
		if err := a.keys.SaveToken(token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		a.log.Info().Str("base_url", a.cfg.BaseURL).Msg("token saved")
		fmt.Println("✅ Token saved")
		if a.cfg.Username != "" {
			fmt.Printf("   Forms will be filled as %s.\n", a.cfg.Username)
		}
		return nil
	},
}

func saveTelemetryDSN(ctx context.Context, a *app) error {
	dsn, err := terminal.ReadSecret("PostgreSQL DSN: ")
	if err != nil {
		return err
	}
	if dsn == "" {
		return errors.New("no DSN given")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	rep, err := telemetry.OpenPostgres(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = rep.Close() }()
	if err := rep.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare failure table: %w", err)
	}

	if err := a.keys.SaveTelemetryDSN(dsn); err != nil {
		return fmt.Errorf("save DSN: %w", err)
	}
	fmt.Println("✅ Telemetry database saved")
	if a.cfg.Telemetry.Sink != config.SinkPostgres {
		fmt.Println("   Enable it with: formplay config set telemetry.sink postgres")
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginOpts.token, "token", "", "API token (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginOpts.telemetryDSN, "telemetry-dsn", false, "Store the telemetry database DSN instead of a token")
	loginCmd.Flags().BoolVar(&loginOpts.open, "open", false, "Open the form service in a browser first")
	rootCmd.AddCommand(loginCmd)
}

// openBrowser starts the platform's default browser on url without waiting.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
