package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether stdout gets ANSI styling.
func ShouldUseColor() bool {
	return colorFor(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// colorFor applies NO_COLOR, then CLICOLOR_FORCE, then CLICOLOR, and finally
// falls back to whether the output is a terminal.
func colorFor(getenv func(string) string, tty bool) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(getenv("CLICOLOR")) == "0":
		return false
	}
	return tty
}
