// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"formplay/cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change CLI settings",
	Long: `Settings live in a TOML file under the user config directory. Secrets are
never written there; see 'formplay login'.

Keys: base_url, domain, username, log_level, request_timeout_ms,
requests_per_second, debugger, timezone, fetch_manifest, manifest_public_key,
store_path, telemetry.sink, telemetry.grpc_addr, telemetry.insecure and
actions.<ACTION> to override the token sent for one action.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		data := pterm.TableData{{"Key", "Value"}}
		for _, e := range cfg.Entries() {
			data = append(data, []string{e[0], orDash(e[1])})
		}
		pterm.Printfln("Config file: %s", path)
		pterm.Println()
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set KEY VALUE",
	Short:   "Change one setting",
	Example: "  formplay config set base_url https://forms.example.org/formplayer\n  formplay config set actions.SUBMIT submit-all",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.SaveFile(path, cfg); err != nil {
			return err
		}
		fmt.Printf("✅ %s updated\n", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
