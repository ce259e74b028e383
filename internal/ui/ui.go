// Package ui provides terminal styling helpers for the CLI.
//
// Styles degrade to plain text when stdout is not a terminal or the
// terminal reports no color support, so command output stays pipeable.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Colorized reports whether styled output should be produced.
func Colorized() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.DefaultOutput().Profile != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !Colorized() {
		return s
	}
	return style.Render(s)
}

// RenderPass styles a success marker.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles a warning marker.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail styles a failure marker.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderAccent styles an informational highlight.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderFaint de-emphasizes secondary detail.
func RenderFaint(s string) string { return render(faintStyle, s) }

// IsInteractive reports whether both stdin and stdout are terminals,
// i.e. whether prompting the user makes sense.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
