// Package terminal provides small terminal helpers for the interactive
// commands: clearing echoed prompts, reading secrets without echo, and
// detecting whether stdin is a TTY.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Width returns the stdout terminal width, or 80 when unavailable.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// LinesFor returns how many rows textLength characters occupy at width,
// plus the empty row left after the user pressed Enter.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	total := int(math.Ceil(float64(textLength) / float64(width)))
	if total < 1 {
		total = 1
	}
	return total + 1
}

// ClearPreviousLines clears a prompt and its echoed answer from stdout.
func ClearPreviousLines(textLength int) {
	ClearLines(os.Stdout, LinesFor(textLength, Width()))
}

// ClearLines moves up and clears n rows, ending at the start of the
// topmost one.
func ClearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // Move to start and clear entire line
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A") // Move up one line (don't move up on last iteration)
		}
	}
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadSecret prints prompt and reads a line from stdin without echo.
func ReadSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stdout, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
