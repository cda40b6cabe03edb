package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/ui"
)

// helpRule styles one capture group of every match of pattern.
type helpRule struct {
	pattern *regexp.Regexp
	group   int
	style   func(string) string
}

var helpRules = []helpRule{
	// Group headers such as "Registry:" and "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`), 1, ui.RenderAccent},
	// Subcommand names in the command list.
	{regexp.MustCompile(`(?m)^  (\S+)  `), 1, ui.RenderCommand},
	// Flag value types, e.g. "--channel string".
	{regexp.MustCompile(`--?\S+\s+(string|int|duration|stringSlice)\b`), 1, ui.RenderMuted},
	{regexp.MustCompile(`(\(default "?[^)"]*"?\))`), 1, ui.RenderMuted},
}

// colorizedHelpFunc post-processes cobra's usage text with ANSI colors when
// stdout supports them.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.pattern.ReplaceAllStringFunc(s, func(match string) string {
			loc := r.pattern.FindStringSubmatchIndex(match)
			if len(loc) < 2*(r.group+1) || loc[2*r.group] < 0 {
				return match
			}
			start, end := loc[2*r.group], loc[2*r.group+1]
			return match[:start] + r.style(match[start:end]) + match[end:]
		})
	}
	return s
}
