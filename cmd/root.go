// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Formplay CLI.
// It fills forms hosted by a form service from the terminal, keeps track of
// resumable sessions and manages credentials and configuration, using the
// Cobra CLI framework with a pterm-based terminal UI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"formplay/cli/internal/logging"
	"formplay/cli/internal/manifest"
)

var (
	showVersion bool
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "formplay",
	Short:         "Fill forms hosted by a form service from the terminal",
	Long:          `Formplay is a command-line client for form services. It opens a form session, asks each question, saves answers as you go and submits the completed form.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("formplay %s\n", Version)
			printServiceVersion(cmd.Context())
			return nil
		}
		return cmd.Help()
	},
}

// printServiceVersion reports the manifest version of the configured
// service, if one is configured and reachable.
func printServiceVersion(ctx context.Context) {
	a, err := bootstrap()
	if err != nil {
		return
	}
	defer a.close()
	if a.cfg.Validate() != nil || !a.cfg.FetchManifest {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	m, err := manifest.Get(ctx, a.fetcher(), a.cfg.BaseURL)
	if err != nil {
		fmt.Println("service manifest unavailable")
		return
	}
	fmt.Printf("service manifest v%d (%s)\n", m.Version, a.cfg.BaseURL)
}

// Execute runs the CLI application. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("formplay", err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and service version information")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to the terminal")
}
