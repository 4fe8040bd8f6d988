// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"formplay/cli/internal/config"
)

// logoutCmd removes every credential the CLI stored.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove all saved credentials",
	Long: `The logout command clears the API token and the telemetry database DSN from
the OS keychain. Settings in the configuration file and the local session
history are kept; use 'formplay sessions --prune' to clear old sessions.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if a.keys != nil {
			if err := a.keys.ClearAll(); err != nil {
				return fmt.Errorf("clear keychain: %w", err)
			}
		}
		fmt.Println("✅ All saved credentials have been removed")
		if config.TokenFromEnv() != "" {
			fmt.Printf("   %s is still set in this shell.\n", config.EnvToken)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
