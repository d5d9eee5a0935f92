// Package cli holds the terminal output helpers shared by railctl commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"railctl/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ColorTheme represents a set of styles for the CLI
type ColorTheme struct {
	Name      string
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Header    lipgloss.Style
	Logo      lipgloss.Style
	Border    lipgloss.Color
	Highlight lipgloss.Style
}

// CurrentTheme is the active theme, starting with the default colors.
var CurrentTheme = ThemeFromConfig(config.New())

// ThemeFromConfig builds CLI styles from the configured theme colors.
func ThemeFromConfig(cfg *config.Config) ColorTheme {
	t := cfg.Theme
	return ColorTheme{
		Name:      t.Name,
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),
		Header:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)).Bold(true),
		Logo:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)),
		Border:    lipgloss.Color(t.Border),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Emphasis)),
	}
}

// SetTheme makes the configured theme current.
func SetTheme(cfg *config.Config) {
	CurrentTheme = ThemeFromConfig(cfg)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, CurrentTheme.Success.Render("✓ "+message))
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintln(w, CurrentTheme.Error.Render("✗ "+message))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintln(w, CurrentTheme.Warning.Render("! "+message))
}

// PrintInfo prints an informational message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintln(w, CurrentTheme.Info.Render("ℹ "+message))
}

// PrintHeader prints a section header
func PrintHeader(w io.Writer, message string) {
	fmt.Fprintln(w, "\n"+CurrentTheme.Header.Render(message))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(message)))
}

// DrawBox draws a rounded box around content using the current theme
func DrawBox(content string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(CurrentTheme.Border).
		Padding(0, 1).
		Render(content)
}

// Table renders rows under headers.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return CurrentTheme.Header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Fields renders name/value pairs aligned on the names.
func Fields(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(CurrentTheme.Highlight.Render(fmt.Sprintf("%-*s", width, p[0])))
		b.WriteString("  " + p[1] + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Confirm asks a yes/no question; anything but y or yes is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	if prompt == "" {
		prompt = "Confirm?"
	}
	fmt.Fprint(out, CurrentTheme.Warning.Render(prompt)+" [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Logo returns the railctl banner.
func Logo() string {
	logo := `
  ____       _ _      _   _
 |  _ \ __ _(_) | ___| |_| |
 | |_) / _' | | |/ __| __| |
 |  _ < (_| | | | (__| |_| |
 |_| \_\__,_|_|_|\___|\__|_|
`
	return CurrentTheme.Logo.Render(logo)
}
