package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"scopenerd/internal/intake"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 2
		inputHeight := 5
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		m.textarea.SetWidth(msg.Width - 4)

		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(40, msg.Width-8)),
		)

		m.refreshViewport()
		m.ready = true

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case replyMsg:
		m.isLoading = false
		m.statusMessage = ""
		for _, line := range msg.reply.Messages {
			m.history = append(m.history, Message{Role: "assistant", Content: line})
		}
		for _, line := range msg.extra {
			m.history = append(m.history, Message{Role: "assistant", Content: line})
		}
		m.buttons = msg.reply.Buttons
		m.refreshViewport()
		m.viewport.GotoBottom()

	case noticeMsg:
		m.isLoading = false
		m.statusMessage = ""
		for _, line := range msg.lines {
			m.history = append(m.history, Message{Role: "assistant", Content: line})
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case errMsg:
		m.isLoading = false
		m.statusMessage = ""
		m.err = msg.err
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.err = nil
			return m.submit(text)
		}
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd, spCmd)
}

// slashEvents maps commands to intake events.
var slashEvents = map[string]intake.Event{
	"/proceed": intake.EventConfirmProceed,
	"/fix":     intake.EventFixAssumption,
	"/ask":     intake.EventAskQuestion,
	"/fast":    intake.EventFastPath,
	"/restart": intake.EventStartOver,
}

const helpText = `**Commands**

- ` + "`/proceed`" + ` - confirm and move on (checkpoint, agent type)
- ` + "`/fix`" + ` - correct an assumption ("industry is healthcare")
- ` + "`/ask`" + ` - have me ask the most important open question
- ` + "`/fast`" + ` - skip remaining questions, proceed on assumptions
- ` + "`/restart`" + ` - discard everything and start over
- ` + "`/export`" + ` - write the assessment documents
- ` + "`/quit`" + ` - exit (the session is saved)

Anything else is treated as conversation.`

// submit routes user input: slash commands become events, everything else is
// a message turn.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(text, "/") {
		cmd := strings.ToLower(strings.Fields(text)[0])
		switch cmd {
		case "/quit", "/exit":
			return m, tea.Quit
		case "/help":
			m.history = append(m.history, Message{Role: "assistant", Content: helpText})
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, nil
		case "/export":
			m.isLoading = true
			m.statusMessage = "Exporting..."
			return m, tea.Batch(m.spinner.Tick, m.exportDocuments())
		}
		if ev, ok := slashEvents[cmd]; ok {
			m.history = append(m.history, Message{Role: "user", Content: text})
			m.isLoading = true
			m.statusMessage = statusFor(ev)
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, tea.Batch(m.spinner.Tick, m.processTurn("", ev))
		}
		m.history = append(m.history, Message{Role: "assistant", Content: "Unknown command. Try `/help`."})
		m.refreshViewport()
		return m, nil
	}

	m.history = append(m.history, Message{Role: "user", Content: text})
	m.isLoading = true
	m.statusMessage = "Thinking..."
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, m.processTurn(text, intake.EventMessage))
}

func statusFor(ev intake.Event) string {
	switch ev {
	case intake.EventConfirmProceed, intake.EventFastPath:
		return "Running..."
	default:
		return "Thinking..."
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderHistory())
}
