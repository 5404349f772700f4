// Package session orchestrates one intake conversation: each user turn runs
// the synchronous pipeline of timebox registration, field extraction,
// judgment merge, assumption sync, and state transition, then records the
// turn into the context handoff. One Session per session ID; nothing is
// shared across sessions.
package session

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"scopenerd/internal/assumption"
	"scopenerd/internal/handoff"
	"scopenerd/internal/intake"
	"scopenerd/internal/judgment"
	"scopenerd/internal/logging"
	"scopenerd/internal/perception"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/store"
	"scopenerd/internal/timebox"
	"scopenerd/internal/types"
)

// Session holds all per-conversation state.
type Session struct {
	ID        string
	extractor *perception.Extractor
	limits    timebox.Limits

	Packet  *types.IntakePacket
	Tracker *assumption.Tracker
	Timebox *timebox.State
	Handoff *handoff.Handoff
	State   intake.State

	Messages []store.ChatMessage
	Results  *pipeline.Results

	createdAt time.Time
	userTexts []string

	// Extraction detail from the current turn, recorded into the handoff.
	lastReasoning  string
	lastConfidence types.Confidence
}

// New starts a fresh session and emits the welcome messages.
func New(extractor *perception.Extractor, limits timebox.Limits) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		extractor: extractor,
		limits:    limits,
		createdAt: time.Now().UTC(),
	}
	s.initState()
	for _, m := range intake.WelcomeMessages() {
		s.appendMessage("assistant", m)
	}
	logging.Session("session started: %s", s.ID)
	return s
}

// Resume rebuilds a session from its persisted record.
func Resume(rec *store.SessionRecord, extractor *perception.Extractor, limits timebox.Limits) *Session {
	s := &Session{
		ID:        rec.ID,
		extractor: extractor,
		limits:    limits,
		Packet:    rec.Packet,
		Tracker:   assumption.Restore(rec.Assumptions),
		Timebox:   rec.Timebox,
		Handoff:   rec.Handoff,
		State:     intake.State(rec.State),
		Messages:  rec.Messages,
		Results:   rec.Results,
		createdAt: rec.CreatedAt,
	}
	if s.Packet == nil {
		s.Packet = &types.IntakePacket{}
	}
	if s.Timebox == nil {
		s.Timebox = timebox.New()
	}
	if s.Handoff == nil {
		s.Handoff = handoff.New(s.ID)
	}
	for _, m := range rec.Messages {
		if m.Role == "user" {
			s.userTexts = append(s.userTexts, m.Content)
		}
	}
	logging.Session("session resumed: %s at %s", s.ID, s.State)
	return s
}

// initState resets the four core structures together.
func (s *Session) initState() {
	s.Packet = &types.IntakePacket{}
	s.Tracker = assumption.NewTracker()
	s.Timebox = timebox.New()
	s.Handoff = handoff.New(s.ID)
	s.State = intake.StateEntry
	s.Results = nil
	s.userTexts = nil
}

// Reply is the session's response to one turn.
type Reply struct {
	Messages []string
	Buttons  []intake.Button

	State          intake.State
	HardStopPrompt bool
	RunStage0      bool
	RunStages13    bool
}

// ProcessTurn runs one user turn through the full intake flow. An empty
// event means a plain message.
func (s *Session) ProcessTurn(ctx context.Context, text string, event intake.Event) Reply {
	if event == "" {
		event = intake.EventMessage
	}

	// Full reset is handled before anything is counted or extracted.
	if event == intake.EventStartOver {
		return s.startOver()
	}

	if text != "" {
		s.appendMessage("user", text)
	}

	// The hard-stop decision reads the timebox as it stood before this
	// turn was registered.
	snapshot := *s.Timebox
	isHard := event == intake.EventMessage && intake.IsHardQuestionState(s.State)
	s.Timebox.RegisterTurn(isHard, s.limits)

	prevState := s.State
	s.lastReasoning = ""
	s.lastConfidence = types.ConfidenceLow

	var corrections []string
	if event == intake.EventMessage && strings.TrimSpace(text) != "" {
		if s.State == intake.StateCheckpoint {
			corrections = s.applyCorrections(text)
		}
		if len(corrections) == 0 {
			s.extract(ctx, text)
			s.userTexts = append(s.userTexts, text)
			judgment.Merge(s.userTexts, s.Packet)
		}
		s.Tracker.Sync(s.Packet)
	}

	next, fx := intake.Transition(s.State, event, s.Packet, &snapshot, s.limits, s.Tracker.ForDisplay())
	if fx.Reset {
		s.initState()
	}
	s.State = next

	msgs := append(corrections, fx.Messages...)
	if fx.AskImportant {
		msgs = append(msgs, s.Tracker.MostImportantQuestion(s.Packet))
	}

	s.recordHandoff(prevState, text)

	buttons := fx.Buttons
	if !fx.HardStopPrompt && s.Timebox.ShouldOfferFastPath(s.limits) && next != intake.StateCheckpoint {
		s.Timebox.MarkFastPathOffered()
		msgs = append(msgs, intake.FastPathOfferMessage())
		buttons = append(buttons, intake.FastPathButton())
	}

	for _, m := range msgs {
		s.appendMessage("assistant", m)
	}

	return Reply{
		Messages:       msgs,
		Buttons:        buttons,
		State:          s.State,
		HardStopPrompt: fx.HardStopPrompt,
		RunStage0:      fx.RunStage0,
		RunStages13:    fx.RunStages13,
	}
}

// startOver discards the packet, tracker, timebox, and handoff atomically
// and greets again.
func (s *Session) startOver() Reply {
	logging.Session("session restarted: %s", s.ID)
	s.initState()
	msgs := intake.WelcomeMessages()
	for _, m := range msgs {
		s.appendMessage("assistant", m)
	}
	return Reply{Messages: msgs, State: s.State}
}

// extract runs the current state's field extraction and applies the results
// to the packet under the judgment update rules.
func (s *Session) extract(ctx context.Context, text string) {
	switch s.State {
	case intake.StateEntry, intake.StateIntent:
		prior := ""
		if b := s.Handoff.Briefing("intent"); b != "" {
			prior = "PRIOR CONTEXT:\n" + b
		}
		r := s.extractor.ExtractIntent(ctx, text, prior)
		if r.UseCaseIntent.IsSet() {
			judgment.Update(s.Packet, types.FieldUseCaseIntent, r.UseCaseIntent)
			s.noteExtraction(r.UseCaseIntent.Reasoning, r.UseCaseIntent.Confidence)
		}
		if r.Industry.IsSet() {
			judgment.Update(s.Packet, types.FieldIndustry, r.Industry)
		}

	case intake.StateOpportunity:
		f := s.extractor.ExtractOpportunity(ctx, text, s.Packet.UseCaseIntent.Value)
		if f.IsSet() {
			judgment.Update(s.Packet, types.FieldOpportunityShape, f)
			s.noteExtraction(f.Reasoning, f.Confidence)
		}

	case intake.StateLocation:
		f := s.extractor.ExtractLocation(ctx, text)
		if f.IsSet() {
			judgment.Update(s.Packet, types.FieldJurisdiction, f)
			s.noteExtraction(f.Reasoning, f.Confidence)
		}

	case intake.StateOrgSize:
		b := s.extractor.ExtractOrgSize(ctx, text)
		if b.IsSet() {
			judgment.UpdateBucket(s.Packet, types.FieldOrganizationSize, b)
			s.noteExtraction(b.Reasoning, b.Confidence)
		}

	case intake.StateTimeline:
		b := s.extractor.ExtractTimeline(ctx, text)
		if b.IsSet() {
			judgment.UpdateBucket(s.Packet, types.FieldTimeline, b)
			s.noteExtraction(b.Reasoning, b.Confidence)
		}

	case intake.StateStakeholders:
		f := s.extractor.ExtractStakeholders(ctx, text)
		if f.IsSet() {
			judgment.Update(s.Packet, types.FieldStakeholderReality, f)
			s.noteExtraction(f.Reasoning, f.Confidence)
		}

	case intake.StateIntegration:
		f := s.extractor.ExtractIntegration(ctx, text)
		if f.IsSet() {
			judgment.UpdateIntegration(s.Packet, f)
			s.noteExtraction("", f.Confidence)
		}

	case intake.StateRisk:
		f := s.extractor.ExtractRisk(ctx, text, s.Packet.UseCaseIntent.Value, s.Packet.Industry.Value)
		if f.IsSet() {
			judgment.UpdateRisk(s.Packet, f)
			s.noteExtraction(f.Reasoning, f.Confidence)
		}
	}
}

func (s *Session) noteExtraction(reasoning string, conf types.Confidence) {
	s.lastReasoning = reasoning
	s.lastConfidence = conf
}

// correctionPattern matches checkpoint fixes like "industry is healthcare"
// or "timeline: next quarter".
var correctionPattern = regexp.MustCompile(`(?i)\b(industry|jurisdiction|location|timeline|org(?:anization)? size|risk|use case|opportunity|goal)\s*(?:is|should be|:|=)\s+(.+)$`)

var correctionFields = map[string]types.FieldID{
	"industry":          types.FieldIndustry,
	"jurisdiction":      types.FieldJurisdiction,
	"location":          types.FieldJurisdiction,
	"timeline":          types.FieldTimeline,
	"org size":          types.FieldOrganizationSize,
	"organization size": types.FieldOrganizationSize,
	"risk":              types.FieldRiskPosture,
	"use case":          types.FieldUseCaseIntent,
	"opportunity":       types.FieldOpportunityShape,
	"goal":              types.FieldOpportunityShape,
}

// applyCorrections parses "field is value" statements at the checkpoint and
// routes them through the assumption tracker so the dependency ripple runs.
func (s *Session) applyCorrections(text string) []string {
	field, value, ok := parseCorrection(text)
	if !ok {
		return nil
	}

	var msgs []string
	corrected := false
	for _, a := range s.Tracker.All() {
		if a.Field == field {
			if err := s.Tracker.Correct(a.ID, value, s.Packet); err == nil {
				corrected = true
			}
			break
		}
	}
	if !corrected {
		// No assumption covers the field; apply the edit directly.
		applyDirectEdit(s.Packet, field, value)
		if judgment.Ripple(s.Packet, field) {
			s.Tracker.MarkNeedsRevalidation("industry", "risk")
		}
	}

	logging.Session("checkpoint correction: %s -> %q", field, value)
	msgs = append(msgs, "Got it, updated "+strings.ToLower(field.DisplayName())+".")
	return msgs
}

// applyDirectEdit writes a user edit into the right field shape.
func applyDirectEdit(p *types.IntakePacket, field types.FieldID, value string) {
	switch field {
	case types.FieldTimeline, types.FieldOrganizationSize:
		judgment.UpdateBucket(p, field, types.BucketField{
			Bucket:     strings.ToLower(value),
			Raw:        value,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
	case types.FieldRiskPosture:
		judgment.UpdateRisk(p, types.RiskField{
			Level:      types.RiskLevel(strings.ToLower(value)),
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
	default:
		judgment.Update(p, field, types.JudgmentField{
			Value:      value,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
	}
}

func parseCorrection(text string) (types.FieldID, string, bool) {
	m := correctionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	field, ok := correctionFields[strings.ToLower(strings.Join(strings.Fields(m[1]), " "))]
	if !ok {
		return "", "", false
	}
	value := strings.TrimSpace(strings.Trim(m[2], `."'`))
	if value == "" {
		return "", "", false
	}
	return field, value, true
}

// recordHandoff appends this turn's block to the context document.
func (s *Session) recordHandoff(state intake.State, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	facts := make(map[string]string)
	for _, id := range types.MergeOrder {
		if s.Packet.FieldIsSet(id) {
			facts[string(id)] = s.Packet.FieldValue(id)
		}
	}

	var open []string
	for _, id := range judgment.OpenQuestions(s.Packet) {
		open = append(open, id.DisplayName()+" still unknown")
	}

	conf := s.lastConfidence
	if conf == "" {
		conf = types.ConfidenceLow
	}
	s.Handoff.Record(string(state), text, facts, s.lastReasoning, open, conf)
}

// SetConfirmedType records the user's agent type choice at the confirm gate.
func (s *Session) SetConfirmedType(code string) {
	judgment.Update(s.Packet, types.FieldConfirmedAgentType, types.JudgmentField{
		Value:      code,
		Confidence: types.ConfidenceHigh,
		Source:     types.SourceAsked,
	})
	logging.Session("agent type confirmed: %s", code)
}

// BuildContext assembles the flat structure handed to the assessment
// pipeline at the run-stage-0 gate.
func (s *Session) BuildContext() handoff.PipelineContext {
	return handoff.BuildContext(s.Packet, s.Handoff, s.Tracker.ForDisplay())
}

// ToRecord snapshots the session for persistence.
func (s *Session) ToRecord() *store.SessionRecord {
	return &store.SessionRecord{
		ID:          s.ID,
		CreatedAt:   s.createdAt,
		State:       string(s.State),
		Packet:      s.Packet,
		Assumptions: s.Tracker.All(),
		Timebox:     s.Timebox,
		Handoff:     s.Handoff,
		Messages:    s.Messages,
		Results:     s.Results,
	}
}

func (s *Session) appendMessage(role, content string) {
	s.Messages = append(s.Messages, store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
