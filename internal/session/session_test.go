package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"scopenerd/internal/intake"
	"scopenerd/internal/perception"
	"scopenerd/internal/timebox"
	"scopenerd/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedLLM plays back responses in order, then fails so extraction falls
// through to the keyword path.
type scriptedLLM struct {
	responses []string
}

func (m *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *scriptedLLM) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if len(m.responses) == 0 {
		return "", errors.New("model unavailable")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func keywordSession(limits timebox.Limits) *Session {
	return New(perception.NewExtractor(nil), limits)
}

func TestNewSessionGreets(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	if s.State != intake.StateEntry {
		t.Errorf("state = %s", s.State)
	}
	if len(s.Messages) < 2 {
		t.Fatalf("messages = %d, want welcome plus first question", len(s.Messages))
	}
	if s.Messages[0].Role != "assistant" {
		t.Errorf("first message role = %q", s.Messages[0].Role)
	}
}

func TestIntentTurnAdvancesWithExtraction(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{responses: []string{
		`{"summary": "Predict catering demand for banquet hall bookings", "industry": "hospitality", "needs_more_info": false, "reasoning": "explicit ask"}`,
	}}
	s := New(perception.NewExtractor(llm), timebox.DefaultLimits())

	reply := s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)
	if s.Packet.Industry.Value != "hospitality" {
		t.Errorf("industry = %q", s.Packet.Industry.Value)
	}
	if !s.Packet.UseCaseIntent.IsSet() {
		t.Error("use case not set")
	}
	if reply.State != intake.StateOpportunity {
		t.Errorf("state = %s, want opportunity", reply.State)
	}
	if s.Handoff.GoldenThread != "We run banquet halls and want to predict catering demand" {
		t.Errorf("golden thread = %q", s.Handoff.GoldenThread)
	}
	if s.Timebox.Turns != 1 {
		t.Errorf("turns = %d", s.Timebox.Turns)
	}
}

func TestKeywordFallbackStillMovesTheConversation(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())

	// The model is down for the whole session; extraction degrades to the
	// keyword tables and the conversation still proceeds.
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)
	if s.Packet.Industry.Value != "hospitality" {
		t.Fatalf("industry = %q", s.Packet.Industry.Value)
	}

	// Raw text at low confidence is still a substantial intent; the machine
	// moves on instead of re-asking until the hard stop.
	if s.State != intake.StateOpportunity {
		t.Fatalf("state = %s, want opportunity", s.State)
	}

	reply := s.ProcessTurn(context.Background(), "we want to automate the scheduling work", intake.EventMessage)
	if s.Packet.OpportunityShape.Value != "cost" {
		t.Errorf("opportunity = %q, want keyword inference", s.Packet.OpportunityShape.Value)
	}
	if len(reply.Messages) == 0 {
		t.Error("no reply emitted")
	}
}

func TestStartOverResetsEverything(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)
	if !s.Packet.Industry.IsSet() {
		t.Fatal("setup: industry not set")
	}

	reply := s.ProcessTurn(context.Background(), "", intake.EventStartOver)
	if s.State != intake.StateEntry {
		t.Errorf("state = %s", s.State)
	}
	if s.Packet.Industry.IsSet() {
		t.Error("packet survived reset")
	}
	if s.Timebox.Turns != 0 {
		t.Errorf("timebox survived reset: %d turns", s.Timebox.Turns)
	}
	if s.Handoff.GoldenThread != "" {
		t.Error("handoff survived reset")
	}
	if len(s.Tracker.All()) != 0 {
		t.Error("tracker survived reset")
	}
	if len(reply.Messages) == 0 {
		t.Error("no welcome after reset")
	}
}

func TestFastPathOfferedOnce(t *testing.T) {
	t.Parallel()

	limits := timebox.Limits{DefaultTurns: 2, HardCapTurns: 18, HardQuestionsMax: 10}
	s := keywordSession(limits)

	s.ProcessTurn(context.Background(), "hello there friend", intake.EventMessage)
	reply := s.ProcessTurn(context.Background(), "still thinking about it", intake.EventMessage)

	found := false
	for _, b := range reply.Buttons {
		if b.Action == intake.EventFastPath {
			found = true
		}
	}
	if !found {
		t.Fatal("fast path button not offered at soft threshold")
	}

	reply = s.ProcessTurn(context.Background(), "more thinking", intake.EventMessage)
	for _, b := range reply.Buttons {
		if b.Action == intake.EventFastPath {
			t.Fatal("fast path offered twice")
		}
	}
}

func TestFastPathJumpsToCheckpoint(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)

	reply := s.ProcessTurn(context.Background(), "", intake.EventFastPath)
	if reply.State != intake.StateCheckpoint {
		t.Fatalf("state = %s", reply.State)
	}
	if len(reply.Buttons) == 0 {
		t.Error("checkpoint buttons missing")
	}
}

func TestCheckpointCorrectionRipples(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)
	s.ProcessTurn(context.Background(), "", intake.EventFastPath)
	if s.State != intake.StateCheckpoint {
		t.Fatalf("setup: state = %s", s.State)
	}
	if s.Packet.RiskPosture.Level != types.RiskMedium {
		t.Fatalf("setup: risk = %q", s.Packet.RiskPosture.Level)
	}

	reply := s.ProcessTurn(context.Background(), "industry is healthcare", intake.EventMessage)
	if s.Packet.Industry.Value != "healthcare" {
		t.Fatalf("industry = %q after correction", s.Packet.Industry.Value)
	}
	if s.Packet.RiskPosture.Level != types.RiskHigh {
		t.Errorf("risk = %q, want re-inferred high", s.Packet.RiskPosture.Level)
	}
	if s.Packet.RiskPosture.Source != types.SourceInferred {
		t.Errorf("risk source = %q", s.Packet.RiskPosture.Source)
	}

	// The flagged risk assumption survives the same-turn re-derive: the user
	// must re-confirm it, so the flag may not be recomputed away.
	found := false
	for _, a := range s.Tracker.All() {
		if a.Field != types.FieldRiskPosture {
			continue
		}
		found = true
		if a.Status != types.AssumptionNeedsRevalidation {
			t.Errorf("risk assumption status = %s, want needs_revalidation", a.Status)
		}
		if !a.NeedsConfirmation {
			t.Error("risk assumption lost its re-confirmation flag")
		}
	}
	if !found {
		t.Error("risk assumption missing after ripple")
	}

	joined := strings.Join(reply.Messages, "\n")
	if !strings.Contains(strings.ToLower(joined), "updated industry") {
		t.Errorf("no correction acknowledgement in %q", joined)
	}
	if reply.State != intake.StateCheckpoint {
		t.Errorf("state = %s, want refreshed checkpoint", reply.State)
	}
}

func TestHardStopSequencing(t *testing.T) {
	t.Parallel()

	limits := timebox.Limits{DefaultTurns: 99, HardCapTurns: 3, HardQuestionsMax: 99}
	s := keywordSession(limits)

	// Turns 1-3: normal progression; the cap is crossed on turn 3 but the
	// response to turn 3 is still normal.
	for i := 0; i < 3; i++ {
		reply := s.ProcessTurn(context.Background(), "just rambling on and on", intake.EventMessage)
		if reply.HardStopPrompt {
			t.Fatalf("turn %d: premature hard stop", i+1)
		}
	}

	// Turns 4-5: hard-stop prompt, state pinned.
	for i := 0; i < 2; i++ {
		reply := s.ProcessTurn(context.Background(), "one more thing", intake.EventMessage)
		if !reply.HardStopPrompt {
			t.Fatalf("extension turn %d: no hard-stop prompt", i+1)
		}
		if reply.State == intake.StateCheckpoint {
			t.Fatal("forced too early")
		}
	}

	// Turn 6: forced progression to the checkpoint.
	reply := s.ProcessTurn(context.Background(), "and another", intake.EventMessage)
	if reply.State != intake.StateCheckpoint {
		t.Fatalf("state = %s, want forced checkpoint", reply.State)
	}
}

func TestAskImportantQuestion(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)
	s.ProcessTurn(context.Background(), "", intake.EventFastPath)

	reply := s.ProcessTurn(context.Background(), "", intake.EventAskQuestion)
	if len(reply.Messages) == 0 {
		t.Fatal("no question asked")
	}
	if reply.State != intake.StateCheckpoint {
		t.Errorf("state = %s", reply.State)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)

	rec := s.ToRecord()
	restored := Resume(rec, perception.NewExtractor(nil), timebox.DefaultLimits())

	if restored.ID != s.ID {
		t.Errorf("id = %q", restored.ID)
	}
	if restored.State != s.State {
		t.Errorf("state = %s, want %s", restored.State, s.State)
	}
	if restored.Packet.Industry.Value != "hospitality" {
		t.Errorf("industry = %q", restored.Packet.Industry.Value)
	}
	if restored.Handoff.GoldenThread != s.Handoff.GoldenThread {
		t.Errorf("golden thread lost in round trip")
	}

	// The restored session keeps working.
	reply := restored.ProcessTurn(context.Background(), "we want to automate the scheduling work", intake.EventMessage)
	if len(reply.Messages) == 0 {
		t.Error("restored session did not respond")
	}
}

func TestBuildContextAtGate(t *testing.T) {
	t.Parallel()

	s := keywordSession(timebox.DefaultLimits())
	s.ProcessTurn(context.Background(), "We run banquet halls and want to predict catering demand", intake.EventMessage)

	pctx := s.BuildContext()
	if pctx.Industry != "hospitality" {
		t.Errorf("industry = %q", pctx.Industry)
	}
	if pctx.GoldenThread == "" {
		t.Error("golden thread missing from pipeline context")
	}
}
