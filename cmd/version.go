// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Version is set at build time with -ldflags "-X formplay/cli/cmd.Version=...".
var Version = "0.0.0-dev"

// userAgent identifies the CLI to the form service and manifest host.
func userAgent() string { return "formplay/" + Version }
