package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"scopenerd/internal/intake"
	"scopenerd/internal/perception"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/session"
	"scopenerd/internal/store"
	"scopenerd/internal/taxonomy"
	"scopenerd/internal/timebox"
)

func testModel(t *testing.T) Model {
	t.Helper()

	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	tax, err := taxonomy.Load("")
	if err != nil {
		t.Fatal(err)
	}

	sess := session.New(perception.NewExtractor(nil), timebox.DefaultLimits())
	return New(Deps{
		Session:   sess,
		Store:     st,
		Pipeline:  pipeline.New(nil, tax),
		ExportDir: t.TempDir(),
		Version:   "test",
	})
}

func TestNewSeedsHistoryFromSession(t *testing.T) {
	t.Parallel()

	m := testModel(t)
	if len(m.history) < 2 {
		t.Fatalf("history = %d entries, want the welcome messages", len(m.history))
	}
	if m.history[0].Role != "assistant" {
		t.Errorf("first entry role = %q", m.history[0].Role)
	}
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()

	m := testModel(t)
	before := len(m.history)

	next, cmd := m.submit("/help")
	if cmd != nil {
		t.Error("help should not start a turn")
	}
	got := next.(Model)
	if len(got.history) != before+1 {
		t.Fatalf("history grew by %d, want 1", len(got.history)-before)
	}
	if !strings.Contains(got.history[len(got.history)-1].Content, "/restart") {
		t.Error("help text missing commands")
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	m := testModel(t)
	next, _ := m.submit("/frobnicate")
	got := next.(Model)
	last := got.history[len(got.history)-1].Content
	if !strings.Contains(last, "Unknown command") {
		t.Errorf("last message = %q", last)
	}
}

func TestSlashCommandStartsTurn(t *testing.T) {
	t.Parallel()

	m := testModel(t)
	next, cmd := m.submit("/restart")
	got := next.(Model)
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if !got.isLoading {
		t.Error("not loading after submit")
	}
}

func TestMessageTurnRoundTrip(t *testing.T) {
	t.Parallel()

	m := testModel(t)
	next, cmd := m.submit("We run banquet halls and want to predict catering demand")
	m = next.(Model)

	// Drain the batch: one of the commands is the turn itself.
	msg := drainForReply(t, cmd)
	updated, _ := m.Update(msg)
	m = updated.(Model)

	if m.isLoading {
		t.Error("still loading after reply")
	}
	if m.sess.Timebox.Turns != 1 {
		t.Errorf("turns = %d", m.sess.Timebox.Turns)
	}
	last := m.history[len(m.history)-1]
	if last.Role != "assistant" {
		t.Errorf("last role = %q", last.Role)
	}
}

// drainForReply executes a possibly-batched command tree until it yields the
// turn's replyMsg.
func drainForReply(t *testing.T, cmd tea.Cmd) replyMsg {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case replyMsg:
			return msg
		case tea.BatchMsg:
			queue = append(queue, msg...)
		}
	}
	t.Fatal("no replyMsg produced")
	return replyMsg{}
}

func TestSlashMapping(t *testing.T) {
	t.Parallel()

	if slashFor(intake.EventConfirmProceed) != "/proceed" {
		t.Error("proceed mapping wrong")
	}
	if slashFor(intake.EventStartOver) != "/restart" {
		t.Error("restart mapping wrong")
	}
	if slashFor(intake.EventMessage) != "" {
		t.Error("message should have no slash command")
	}
}
