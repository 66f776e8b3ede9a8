package terminal

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	colorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#0550ae", Dark: "#58a6ff"}
)

// styles are bound to one lipgloss renderer so color detection follows
// the writer rather than stdout
type styles struct {
	Title   lipgloss.Style
	Hook    lipgloss.Style
	OK      lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Accent  lipgloss.Style
	Output  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title:   r.NewStyle().Bold(true),
		Hook:    r.NewStyle().Width(22),
		OK:      r.NewStyle().Foreground(colorSuccess).Bold(true),
		Failed:  r.NewStyle().Foreground(colorError).Bold(true),
		Skipped: r.NewStyle().Foreground(colorMuted),
		Muted:   r.NewStyle().Foreground(colorMuted),
		Warning: r.NewStyle().Foreground(colorWarning),
		Accent:  r.NewStyle().Foreground(colorAccent),
		Output: r.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorMuted).
			PaddingLeft(1).
			MarginLeft(2),
	}
}

func (s styles) status(status string) string {
	switch status {
	case "ok":
		return s.OK.Render("✓ ok")
	case "failed":
		return s.Failed.Render("✗ failed")
	default:
		return s.Skipped.Render("- " + status)
	}
}
