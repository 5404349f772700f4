package chat

import "github.com/charmbracelet/lipgloss"

// Styles bundles the lipgloss styles used by the chat view.
type Styles struct {
	Header    lipgloss.Style
	Badge     lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	UserInput lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles returns the standard theme.
func DefaultStyles() Styles {
	accent := lipgloss.Color("205")
	primary := lipgloss.Color("39")
	muted := lipgloss.Color("241")

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(accent).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginTop(1),
		BotLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginTop(1),
		UserInput: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
	}
}
