// Package intake is the conversational state machine: a closed state enum,
// a closed event enum, and a total transition function over (state, event,
// packet, timebox). Everything user-visible it produces is carried in the
// returned Effects; the machine itself never performs IO.
package intake

import (
	"fmt"
	"strings"

	"scopenerd/internal/judgment"
	"scopenerd/internal/logging"
	"scopenerd/internal/timebox"
	"scopenerd/internal/types"
)

// State is one node of the intake conversation.
type State string

const (
	StateEntry        State = "entry"
	StateIntent       State = "intent"
	StateOpportunity  State = "opportunity"
	StateLocation     State = "location"
	StateOrgSize      State = "org-size"
	StateTimeline     State = "timeline"
	StateStakeholders State = "stakeholders"
	StateIntegration  State = "integration"
	StateRisk         State = "risk"
	StateCheckpoint   State = "assumptions-checkpoint"
	StateRunStage0    State = "run-stage-0"
	StateConfirmType  State = "confirm-type"
	StateRunStages13  State = "run-stage-1-3"
	StateExports      State = "exports"
)

// Event classifies what the user did this turn.
type Event string

const (
	EventMessage        Event = "message"
	EventFastPath       Event = "fast_path"
	EventConfirmProceed Event = "confirm_proceed"
	EventFixAssumption  Event = "fix_assumption"
	EventAskQuestion    Event = "ask_question"
	EventStartOver      Event = "start_over"
)

// Button is one user action offered alongside a system message.
type Button struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Action Event  `json:"action"`
}

// CheckpointButtons are offered with the assumptions recap.
func CheckpointButtons() []Button {
	return []Button{
		{ID: "proceed", Label: "Looks right, proceed", Action: EventConfirmProceed},
		{ID: "fix", Label: "Fix one thing", Action: EventFixAssumption},
		{ID: "ask", Label: "Ask me the most important question", Action: EventAskQuestion},
		{ID: "fast", Label: "Just run it", Action: EventFastPath},
	}
}

// HardStopButtons are offered with the hard-stop prompt.
func HardStopButtons() []Button {
	return []Button{
		{ID: "proceed", Label: "Yes, run the analysis", Action: EventConfirmProceed},
		{ID: "more", Label: "Let me add one more thing", Action: EventMessage},
		{ID: "restart", Label: "Start over", Action: EventStartOver},
	}
}

// FastPathOfferMessage is the one-time offer to skip remaining questions.
func FastPathOfferMessage() string {
	return copyFastPathOffer
}

// FastPathButton accompanies the one-time fast-path offer.
func FastPathButton() Button {
	return Button{ID: "fast", Label: "Skip ahead with assumptions", Action: EventFastPath}
}

// IsHardQuestionState reports whether the state elicits a blocker field, so
// answering it draws down the hard-question budget.
func IsHardQuestionState(s State) bool {
	id, ok := fieldFor[s]
	if !ok {
		return false
	}
	for _, b := range types.BlockerFields {
		if b == id {
			return true
		}
	}
	return false
}

// Effects is everything a transition asks the caller to do.
type Effects struct {
	Messages []string
	Buttons  []Button

	// HardStopPrompt marks that the hard-stop options were emitted and the
	// state deliberately did not advance.
	HardStopPrompt bool
	// AskImportant asks the caller to pose the most important open question.
	AskImportant bool
	// Reset asks the caller to reinitialize the whole session.
	Reset bool
	// RunStage0 / RunStages13 hand control to the assessment pipeline.
	RunStage0   bool
	RunStages13 bool
}

// WelcomeMessages open a fresh session.
func WelcomeMessages() []string {
	return []string{copyWelcome, copyIntent}
}

// elicitOrder is the linear default path through the question states.
var elicitOrder = []State{
	StateIntent,
	StateOpportunity,
	StateLocation,
	StateOrgSize,
	StateTimeline,
	StateStakeholders,
	StateIntegration,
	StateRisk,
}

// fieldFor maps a question state to the field it elicits.
var fieldFor = map[State]types.FieldID{
	StateIntent:       types.FieldUseCaseIntent,
	StateOpportunity:  types.FieldOpportunityShape,
	StateLocation:     types.FieldJurisdiction,
	StateOrgSize:      types.FieldOrganizationSize,
	StateTimeline:     types.FieldTimeline,
	StateStakeholders: types.FieldStakeholderReality,
	StateIntegration:  types.FieldIntegrationSurface,
	StateRisk:         types.FieldRiskPosture,
}

// preCheckpoint reports whether the state comes before the assumptions
// checkpoint on the linear path.
func preCheckpoint(s State) bool {
	switch s {
	case StateEntry, StateIntent, StateOpportunity, StateLocation,
		StateOrgSize, StateTimeline, StateStakeholders, StateIntegration, StateRisk:
		return true
	}
	return false
}

// intentComplete reports whether the use case answer is substantial enough
// to move past the intent question. Extraction confidence deliberately does
// not gate this: a long answer the model could not parse still advances,
// with the raw text carried at low confidence.
func intentComplete(p *types.IntakePacket) bool {
	return p.UseCaseIntent.IsSet() && len(p.UseCaseIntent.Value) > 20
}

// satisfied reports whether a question state's field is already answered
// well enough that skipping the question would be safe: set with confidence
// at least med. The intent additionally needs a substantial answer.
func satisfied(p *types.IntakePacket, s State) bool {
	id, ok := fieldFor[s]
	if !ok {
		return false
	}
	if !p.FieldIsSet(id) {
		return false
	}
	if p.FieldConfidence(id).Rank() < types.ConfidenceMed.Rank() {
		return false
	}
	if s == StateIntent && len(p.UseCaseIntent.Value) <= 20 {
		return false
	}
	return true
}

// askRiskBranch decides whether the integration and risk questions are
// asked at all: only for regulated domains or when systems were already
// mentioned.
func askRiskBranch(p *types.IntakePacket) bool {
	return judgment.IsRegulatedDomain(p) || p.IntegrationSurface.IsSet()
}

// nextElicit walks the linear order starting after `from`, skipping states
// whose field is already satisfied and applying the regulated-domain branch.
// Returns the checkpoint when every remaining question is answered.
func nextElicit(from State, p *types.IntakePacket) State {
	start := 0
	if from != StateEntry {
		for i, s := range elicitOrder {
			if s == from {
				start = i + 1
				break
			}
		}
	}
	for _, s := range elicitOrder[start:] {
		if s == StateIntegration || s == StateRisk {
			if !askRiskBranch(p) {
				return StateCheckpoint
			}
		}
		if !satisfied(p, s) {
			return s
		}
	}
	return StateCheckpoint
}

// Transition is the total transition function. It inspects but never
// mutates the timebox; registering the turn is the caller's job, and the
// hard-stop decision reads the snapshot taken before the current turn was
// registered, so the prompt itself does not burn extension turns.
func Transition(state State, event Event, p *types.IntakePacket, tb *timebox.State, limits timebox.Limits, assumptions []types.Assumption) (State, Effects) {
	next, fx := transition(state, event, p, tb, limits, assumptions)
	if next != state {
		logging.Intake("transition %s --%s--> %s", state, event, next)
	}
	return next, fx
}

func transition(state State, event Event, p *types.IntakePacket, tb *timebox.State, limits timebox.Limits, assumptions []types.Assumption) (State, Effects) {
	// Rule 1: fast path jumps to the checkpoint, or past it when already there.
	if event == EventFastPath {
		if preCheckpoint(state) {
			return arriveCheckpoint(p, assumptions)
		}
		if state == StateCheckpoint {
			return StateRunStage0, Effects{Messages: []string{copyRunStage0}, RunStage0: true}
		}
	}

	// Rule 2: explicit confirmation at the two gates.
	if event == EventConfirmProceed {
		switch state {
		case StateCheckpoint:
			return StateRunStage0, Effects{Messages: []string{copyRunStage0}, RunStage0: true}
		case StateConfirmType:
			return StateRunStages13, Effects{Messages: []string{copyRunStages}, RunStages13: true}
		}
		// A hard-stop "proceed" before the checkpoint jumps there.
		if preCheckpoint(state) && tb.ReachedHardStop(limits) {
			return arriveCheckpoint(p, assumptions)
		}
	}

	// Rule 3: start over resets everything.
	if event == EventStartOver {
		return StateEntry, Effects{Messages: WelcomeMessages(), Reset: true}
	}

	// Rule 4: hard stop. Evaluated on the pre-turn snapshot; the prompt
	// turn only starts costing extensions with the next user message.
	if preCheckpoint(state) && tb.ReachedHardStop(limits) {
		if tb.ShouldForceProceed() {
			return arriveCheckpoint(p, assumptions)
		}
		return state, Effects{
			Messages:       []string{copyHardStop},
			Buttons:        HardStopButtons(),
			HardStopPrompt: true,
		}
	}

	// Rules 5-6: state-specific completion, linear advance, branch.
	switch state {
	case StateEntry:
		return arrive(nextElicit(StateEntry, p), p, assumptions)

	case StateIntent:
		if intentComplete(p) {
			return arrive(nextElicit(StateIntent, p), p, assumptions)
		}
		return StateIntent, Effects{Messages: []string{copyIntentFollowup}}

	case StateOpportunity:
		if p.OpportunityShape.IsSet() {
			return arrive(nextElicit(StateOpportunity, p), p, assumptions)
		}
		return StateOpportunity, Effects{Messages: []string{copyDidNotCatch, copyOpportunity}}

	case StateLocation, StateOrgSize, StateTimeline, StateStakeholders, StateIntegration, StateRisk:
		// Single-shot asks: one extraction attempt, then move on regardless.
		return arrive(nextElicit(state, p), p, assumptions)

	case StateCheckpoint:
		switch event {
		case EventFixAssumption:
			return StateCheckpoint, Effects{Messages: []string{copyWhichFix}}
		case EventAskQuestion:
			return StateCheckpoint, Effects{AskImportant: true}
		}
		// A plain message at the checkpoint refreshes the recap.
		return arriveCheckpoint(p, assumptions)

	case StateRunStage0:
		return StateConfirmType, Effects{Messages: []string{copyConfirmType}}

	case StateConfirmType:
		// Stays until confirm_proceed; treat the message as a type edit
		// handled upstream and re-prompt.
		return StateConfirmType, Effects{Messages: []string{copyConfirmType}}

	case StateRunStages13:
		return StateExports, Effects{Messages: []string{copyExports}}

	case StateExports:
		return StateExports, Effects{Messages: []string{copyExports}}
	}

	return state, Effects{}
}

// arrive enters a question state (or the checkpoint) and emits its copy.
func arrive(s State, p *types.IntakePacket, assumptions []types.Assumption) (State, Effects) {
	if s == StateCheckpoint {
		return arriveCheckpoint(p, assumptions)
	}
	return s, Effects{Messages: []string{questionFor(s)}}
}

func questionFor(s State) string {
	switch s {
	case StateIntent:
		return copyIntent
	case StateOpportunity:
		return copyOpportunity
	case StateLocation:
		return copyLocation
	case StateOrgSize:
		return copyOrgSize
	case StateTimeline:
		return copyTimeline
	case StateStakeholders:
		return copyStakeholders
	case StateIntegration:
		return copyIntegration
	case StateRisk:
		return copyRisk
	}
	return copyDidNotCatch
}

// arriveCheckpoint synthesizes the recap of everything known plus the top
// assumptions and offers the checkpoint actions.
func arriveCheckpoint(p *types.IntakePacket, assumptions []types.Assumption) (State, Effects) {
	msgs := []string{copyCheckpoint}
	if recap := Recap(p); recap != "" {
		msgs = append(msgs, recap)
	}
	if len(assumptions) > 0 {
		var b strings.Builder
		b.WriteString("**Assumptions I'm making:**\n")
		for _, a := range assumptions {
			marker := ""
			if a.NeedsConfirmation {
				marker = " (?)"
			}
			fmt.Fprintf(&b, "- %s%s\n", a.Statement, marker)
		}
		msgs = append(msgs, b.String())
	}
	return StateCheckpoint, Effects{Messages: msgs, Buttons: CheckpointButtons()}
}

// Recap renders every known field as a compact summary block.
func Recap(p *types.IntakePacket) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf("**%s:** %s", label, value))
		}
	}
	add("Industry", p.Industry.Value)
	intent := p.UseCaseIntent.Value
	if len(intent) > 200 {
		intent = intent[:200] + "..."
	}
	add("Use Case", intent)
	add("Goal", p.OpportunityShape.Value)
	add("Jurisdiction", p.Jurisdiction.Value)
	add("Org Size", p.OrganizationSize.Bucket)
	add("Timeline", p.Timeline.Bucket)
	add("Stakeholders", p.StakeholderReality.Value)
	add("Systems", strings.Join(p.IntegrationSurface.Systems, ", "))
	add("Risk", string(p.RiskPosture.Level))
	return strings.Join(parts, "\n")
}
