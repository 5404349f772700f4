package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scopenerd/internal/intake"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.viewport.View()
	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			m.styles.Error.Render("Error: "+m.err.Error()))
	}
	inputArea := m.styles.Input.Render(m.textarea.View())
	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		inputArea,
		footer,
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" scopeNERD ")
	version := m.styles.Badge.Render("v" + m.version)
	stage := m.styles.Muted.Render("  " + stageLabel(m.sess.State))

	var status string
	if m.isLoading {
		msg := m.statusMessage
		if msg == "" {
			msg = "Thinking..."
		}
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render(msg))
	} else {
		status = m.styles.Success.Render("Ready")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", version, "  ", status, stage)
	divider := m.styles.Muted.Render(strings.Repeat("─", max(1, m.width)))
	return lipgloss.JoinVertical(lipgloss.Left, line, divider)
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			sb.WriteString(m.styles.UserLabel.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n\n")
		default:
			sb.WriteString(m.styles.BotLabel.Render("scopeNERD") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) renderFooter() string {
	var hints []string
	for _, b := range m.buttons {
		if cmd := slashFor(b.Action); cmd != "" {
			hints = append(hints, fmt.Sprintf("%s %s", cmd, b.Label))
		}
	}
	if len(hints) == 0 {
		hints = append(hints, "/help commands")
	}

	tb := m.sess.Timebox
	turns := m.styles.Muted.Render(fmt.Sprintf("turn %d", tb.Turns))

	return m.styles.Muted.Render(strings.Join(hints, "  ·  ")) + "  |  " + turns
}

func slashFor(ev intake.Event) string {
	for cmd, e := range slashEvents {
		if e == ev {
			return cmd
		}
	}
	return ""
}

func stageLabel(s intake.State) string {
	switch s {
	case intake.StateCheckpoint:
		return "assumptions checkpoint"
	case intake.StateConfirmType:
		return "confirm agent type"
	case intake.StateExports:
		return "assessment ready"
	default:
		return string(s)
	}
}
