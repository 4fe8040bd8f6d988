// Package main is the entry point for the Formplay CLI application.
// It fills forms hosted by a remote form service from the terminal.
package main

import (
	"formplay/cli/cmd"
)

// main is the entry point for the Formplay CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
