// Package chat provides the interactive TUI for the scoping conversation.
package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"scopenerd/internal/export"
	"scopenerd/internal/intake"
	"scopenerd/internal/logging"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/session"
	"scopenerd/internal/store"
)

// Deps wires the chat interface to the rest of the system.
type Deps struct {
	Session   *session.Session
	Store     *store.Store
	Pipeline  *pipeline.Pipeline
	ExportDir string
	Version   string
}

// Message is one rendered chat entry.
type Message struct {
	Role    string // user or assistant
	Content string
}

// Model is the bubbletea model for the chat interface.
type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   Styles

	sess      *session.Session
	store     *store.Store
	pl        *pipeline.Pipeline
	exportDir string
	version   string

	history []Message
	buttons []intake.Button

	isLoading     bool
	statusMessage string
	err           error

	width  int
	height int
	ready  bool
}

// replyMsg carries one completed turn back into the update loop. Extra holds
// pipeline summaries and export notices produced alongside the reply.
type replyMsg struct {
	reply session.Reply
	extra []string
}

// noticeMsg appends assistant-side text without a state transition.
type noticeMsg struct {
	lines []string
}

type errMsg struct {
	err error
}

// New builds the chat model around an existing session.
func New(deps Deps) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe your project, or /help for commands..."
	ta.Focus()
	ta.SetHeight(3)
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	m := Model{
		textarea:  ta,
		viewport:  vp,
		spinner:   sp,
		renderer:  renderer,
		styles:    DefaultStyles(),
		sess:      deps.Session,
		store:     deps.Store,
		pl:        deps.Pipeline,
		exportDir: deps.ExportDir,
		version:   deps.Version,
	}

	// Seed the history from the session so resumed conversations show
	// their full transcript.
	for _, msg := range deps.Session.Messages {
		m.history = append(m.history, Message{Role: msg.Role, Content: msg.Content})
	}
	if deps.Session.State == intake.StateCheckpoint {
		m.buttons = intake.CheckpointButtons()
	}

	return m
}

// Run starts the chat program and blocks until it exits.
func Run(deps Deps) error {
	p := tea.NewProgram(New(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// typePattern recognizes an agent type choice at the confirm gate.
var typePattern = regexp.MustCompile(`\b(T[0-4])\b`)

// processTurn runs one turn, including any pipeline stages the transition
// triggered, off the UI goroutine.
func (m Model) processTurn(text string, event intake.Event) tea.Cmd {
	sess, pl, st := m.sess, m.pl, m.store
	exportDir := m.exportDir

	return func() tea.Msg {
		ctx := context.Background()

		// A "T3" style answer at the confirm gate is a confirmation, not
		// conversation.
		if sess.State == intake.StateConfirmType && event == intake.EventMessage {
			if code := typePattern.FindString(strings.ToUpper(text)); code != "" {
				sess.SetConfirmedType(code)
				event = intake.EventConfirmProceed
			}
		}

		reply := sess.ProcessTurn(ctx, text, event)

		var extra []string
		if reply.RunStage0 {
			extra = append(extra, runResearch(ctx, sess, pl)...)
		}
		if reply.RunStages13 {
			extra = append(extra, runStages(ctx, sess, pl)...)
			extra = append(extra, fmt.Sprintf("Use `/export` to write the documents to `%s/`.", exportDir))
		}

		if err := st.Save(sess.ToRecord()); err != nil {
			logging.SessionError("save failed: %v", err)
		}

		return replyMsg{reply: reply, extra: extra}
	}
}

// runResearch executes stage 0 and summarizes it for the transcript.
func runResearch(ctx context.Context, sess *session.Session, pl *pipeline.Pipeline) []string {
	research := pl.RunResearch(ctx, sess.BuildContext())
	sess.Results = &pipeline.Results{Research: research}

	if research.Status != pipeline.StatusComplete {
		return []string{"The research stage failed: " + research.Err +
			"\n\nYou can try `/proceed` again, or check your API key."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Viability research complete.**\n\n")
	fmt.Fprintf(&b, "- **Go/No-Go:** %s\n", strings.ToUpper(research.GoNoGo))
	fmt.Fprintf(&b, "- **Recommended agent type:** %s\n", research.RecommendedType)
	fmt.Fprintf(&b, "- **Confidence:** %s\n", research.ConfidenceLevel)
	if len(research.KeyRisks) > 0 {
		b.WriteString("\n**Key risks:**\n")
		for _, r := range research.KeyRisks {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if research.Rationale != "" {
		fmt.Fprintf(&b, "\n%s\n", research.Rationale)
	}
	return []string{b.String()}
}

// runStages executes requirements, design, and capability mapping.
func runStages(ctx context.Context, sess *session.Session, pl *pipeline.Pipeline) []string {
	var research *pipeline.ResearchResult
	if sess.Results != nil {
		research = sess.Results.Research
	}

	confirmed := sess.Packet.ConfirmedAgentType.Value
	results := pl.RunStages13(ctx, sess.BuildContext(), research, confirmed)
	sess.Results = &results

	var failed []string
	for name, status := range map[string]pipeline.Status{
		"requirements":       results.Requirements.Status,
		"agent design":       results.Design.Status,
		"capability mapping": results.Mapping.Status,
	} {
		if status != pipeline.StatusComplete {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return []string{"These stages failed: " + strings.Join(failed, ", ") +
			". The completed stages were kept; `/proceed` retries the rest."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Full assessment complete.**\n\n")
	fmt.Fprintf(&b, "- **Agent type:** %s\n", results.Design.EffectiveType())
	fmt.Fprintf(&b, "- **Requirements sections:** %d\n", len(results.Requirements.Sections))
	fmt.Fprintf(&b, "- **Capabilities mapped:** %d (%d essential)\n",
		len(results.Mapping.Mappings), len(results.Mapping.Essential))
	return []string{b.String()}
}

// exportDocuments writes the four assessment documents.
func (m Model) exportDocuments() tea.Cmd {
	sess, pl, dir := m.sess, m.pl, m.exportDir

	return func() tea.Msg {
		if sess.Results == nil || sess.Results.Research == nil {
			return noticeMsg{lines: []string{"Nothing to export yet; the assessment hasn't run."}}
		}

		paths, err := export.WriteAll(dir, export.Input{
			SessionID:    sess.ID,
			Packet:       sess.Packet,
			Assumptions:  sess.Tracker.All(),
			Results:      *sess.Results,
			GoldenThread: sess.Handoff.GoldenThread,
			Taxonomy:     pl.Taxonomy(),
		})
		if err != nil {
			return errMsg{err: err}
		}

		lines := []string{"Exported:"}
		for _, p := range paths {
			lines = append(lines, "- `"+p+"`")
		}
		return noticeMsg{lines: []string{strings.Join(lines, "\n")}}
	}
}
