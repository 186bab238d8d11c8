// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ANSI color codes used by the shell.
const (
	ColorGreen  = "32"
	ColorYellow = "33"
	ColorCyan   = "36"
)

// SupportsColor checks if stdout is a terminal that understands ANSI codes.
// NO_COLOR disables color.
func SupportsColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) { // #nosec G115 - file descriptors are small integers
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "" || termEnv == "dumb" {
		return false
	}

	return true
}

// Colorize wraps s in the ANSI color code when stdout supports it.
func Colorize(code, s string) string {
	if code == "" || !SupportsColor() {
		return s
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, s)
}
