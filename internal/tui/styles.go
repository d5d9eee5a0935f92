package tui

import (
	"railctl/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the console's lipgloss styles, derived from the configured theme.
type Styles struct {
	App      lipgloss.Style
	Title    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Label    lipgloss.Style
	Box      lipgloss.Style
	Help     lipgloss.Style
}

// NewStyles builds styles from the theme colors in cfg. A nil config uses
// the default theme.
func NewStyles(cfg *config.Config) Styles {
	if cfg == nil {
		cfg = config.New()
	}
	t := cfg.Theme
	return Styles{
		App: lipgloss.NewStyle().Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(t.Primary)).
			Padding(0, 1),
		Status:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(t.Primary)),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#959595")),
		Label: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Emphasis)),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(lipgloss.Color("#5A9")),
	}
}
