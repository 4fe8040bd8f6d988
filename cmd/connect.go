// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"formplay/cli/internal/config"
	"formplay/cli/internal/manifest"
)

// connectCmd prompts for the form service settings, checks the service
// answers and saves the settings to the config file.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Configure and verify the form service connection",
	Long: `The connect command asks for the form service URL, the project domain and the
username to fill forms as. When manifest fetching is enabled it checks that the
service publishes its action manifest before saving. Press Enter to keep a
value shown in brackets.

Example URL: https://forms.example.org/formplayer`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		for _, f := range []struct{ key, prompt, cur string }{
			{"base_url", "Form service URL", cfg.BaseURL},
			{"domain", "Project domain", cfg.Domain},
			{"username", "Username", cfg.Username},
		} {
			v, err := promptValue(reader, f.prompt, f.cur)
			if err != nil {
				return err
			}
			if err := cfg.Set(f.key, v); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			fmt.Println("❌ " + err.Error())
			return err
		}

		if cfg.FetchManifest {
			if err := verifyService(cmd.Context(), cfg); err != nil {
				fmt.Println("❌ The form service did not answer. Check the URL and your network connection.")
				return err
			}
		}

		if err := config.SaveFile(path, cfg); err != nil {
			fmt.Println("❌ Failed to save settings.")
			return err
		}
		fmt.Println("✅ Form service settings saved!")
		fmt.Println("   Next: formplay login")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func promptValue(r *bufio.Reader, prompt, current string) (string, error) {
	if current != "" {
		fmt.Printf("%s [%s]: ", prompt, current)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return current, nil
}

func verifyService(ctx context.Context, cfg config.Config) error {
	a := &app{cfg: cfg}
	sp := newLoadingIndicator(interactive(), "verifying form service")
	sp.Start()
	defer sp.Stop()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := manifest.Get(ctx, a.fetcher(), cfg.BaseURL)
	return err
}
