package intake

import (
	"strings"
	"testing"

	"scopenerd/internal/timebox"
	"scopenerd/internal/types"
)

func freshTimebox() *timebox.State { return timebox.New() }

func limits() timebox.Limits { return timebox.DefaultLimits() }

func set(p *types.IntakePacket, id types.FieldID, value string) {
	f := types.JudgmentField{Value: value, Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted}
	switch id {
	case types.FieldIndustry:
		p.Industry = f
	case types.FieldUseCaseIntent:
		p.UseCaseIntent = f
	case types.FieldOpportunityShape:
		p.OpportunityShape = f
	case types.FieldJurisdiction:
		p.Jurisdiction = f
	case types.FieldStakeholderReality:
		p.StakeholderReality = f
	}
}

func TestEntryAdvancesToIntent(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, fx := Transition(StateEntry, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateIntent {
		t.Fatalf("next = %s", next)
	}
	if len(fx.Messages) == 0 {
		t.Fatal("no question emitted")
	}
}

func TestIntentStaysUntilSubstantial(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	p.UseCaseIntent = types.JudgmentField{Value: "short", Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted}

	next, fx := Transition(StateIntent, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateIntent {
		t.Fatalf("advanced on a 5-char intent: %s", next)
	}
	if len(fx.Messages) == 0 {
		t.Fatal("no follow-up emitted")
	}

	set(p, types.FieldUseCaseIntent, "predict catering demand for our banquet hall business")
	next, _ = Transition(StateIntent, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateOpportunity {
		t.Fatalf("next = %s, want opportunity", next)
	}
}

func TestIntentAdvancesOnLowConfidenceAnswer(t *testing.T) {
	t.Parallel()

	// Extraction fell back to raw user text at low confidence. A substantial
	// answer still moves the conversation forward; only length gates intent.
	p := &types.IntakePacket{}
	p.UseCaseIntent = types.JudgmentField{
		Value:      "predict catering demand for our banquet hall business",
		Confidence: types.ConfidenceLow,
		Source:     types.SourceKeywordMatch,
	}

	next, _ := Transition(StateIntent, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateOpportunity {
		t.Fatalf("next = %s, want opportunity", next)
	}
}

func TestOpportunityRetriesUntilSet(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, _ := Transition(StateOpportunity, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateOpportunity {
		t.Fatalf("advanced without a shape: %s", next)
	}
	set(p, types.FieldOpportunityShape, "cost")
	next, _ = Transition(StateOpportunity, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateLocation {
		t.Fatalf("next = %s, want location", next)
	}
}

func TestSingleShotStatesAdvanceRegardless(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	// Nothing extracted: each context question is asked once and released.
	next, _ := Transition(StateLocation, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateOrgSize {
		t.Fatalf("location -> %s", next)
	}
	next, _ = Transition(StateOrgSize, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateTimeline {
		t.Fatalf("org-size -> %s", next)
	}
	next, _ = Transition(StateTimeline, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateStakeholders {
		t.Fatalf("timeline -> %s", next)
	}
}

func TestBranchSkipsRiskForUnregulatedWithoutSystems(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	set(p, types.FieldIndustry, "hospitality")

	next, fx := Transition(StateStakeholders, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint {
		t.Fatalf("stakeholders -> %s, want checkpoint (branch skipped)", next)
	}
	if len(fx.Buttons) == 0 {
		t.Fatal("checkpoint must offer action buttons")
	}
}

func TestBranchAsksIntegrationForRegulated(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	set(p, types.FieldIndustry, "healthcare")

	next, _ := Transition(StateStakeholders, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateIntegration {
		t.Fatalf("stakeholders -> %s, want integration for regulated domain", next)
	}
	next, _ = Transition(StateIntegration, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateRisk {
		t.Fatalf("integration -> %s, want risk", next)
	}
	next, _ = Transition(StateRisk, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint {
		t.Fatalf("risk -> %s, want checkpoint", next)
	}
}

func TestBranchAsksIntegrationWhenSystemsMentioned(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	set(p, types.FieldIndustry, "hospitality")
	p.IntegrationSurface = types.IntegrationField{
		Systems: []string{"Salesforce"}, Confidence: types.ConfidenceMed, Source: types.SourceInferred,
	}

	// Integration surface is already satisfied, so the branch lands on risk.
	next, _ := Transition(StateStakeholders, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateRisk {
		t.Fatalf("stakeholders -> %s, want risk (integration satisfied)", next)
	}
}

func TestVolunteeredFieldsAreNeverReAsked(t *testing.T) {
	t.Parallel()

	// Everything arrived in message one; the machine must not march through
	// the question states robotically.
	p := &types.IntakePacket{}
	set(p, types.FieldUseCaseIntent, "predict catering demand for our banquet hall business")
	set(p, types.FieldOpportunityShape, "revenue")
	set(p, types.FieldJurisdiction, "US - Midwest")
	set(p, types.FieldIndustry, "hospitality")
	set(p, types.FieldStakeholderReality, "ops team uses it, owner signs off")
	p.Timeline = types.BucketField{Bucket: "near-term", Confidence: types.ConfidenceMed, Source: types.SourceInferred}
	p.OrganizationSize = types.BucketField{Bucket: "medium", Confidence: types.ConfidenceMed, Source: types.SourceInferred}

	next, _ := Transition(StateEntry, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint {
		t.Fatalf("entry -> %s, want checkpoint straight away", next)
	}
}

func TestLowConfidenceFieldIsReAsked(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	set(p, types.FieldUseCaseIntent, "predict catering demand for our banquet hall business")
	p.OpportunityShape = types.JudgmentField{Value: "cost", Confidence: types.ConfidenceLow, Source: types.SourceInferred}

	next, _ := Transition(StateIntent, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateOpportunity {
		t.Fatalf("low-confidence opportunity should still be asked, got %s", next)
	}
}

func TestFastPathJumpsToCheckpoint(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, fx := Transition(StateOpportunity, EventFastPath, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint {
		t.Fatalf("fast path -> %s", next)
	}
	if len(fx.Buttons) == 0 {
		t.Fatal("checkpoint buttons missing")
	}

	next, fx = Transition(StateCheckpoint, EventFastPath, p, freshTimebox(), limits(), nil)
	if next != StateRunStage0 || !fx.RunStage0 {
		t.Fatalf("fast path at checkpoint -> %s (run=%v)", next, fx.RunStage0)
	}
}

func TestConfirmProceedGates(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, fx := Transition(StateCheckpoint, EventConfirmProceed, p, freshTimebox(), limits(), nil)
	if next != StateRunStage0 || !fx.RunStage0 {
		t.Fatalf("checkpoint confirm -> %s", next)
	}
	next, fx = Transition(StateConfirmType, EventConfirmProceed, p, freshTimebox(), limits(), nil)
	if next != StateRunStages13 || !fx.RunStages13 {
		t.Fatalf("confirm-type confirm -> %s", next)
	}
}

func TestStartOverResets(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, fx := Transition(StateRisk, EventStartOver, p, freshTimebox(), limits(), nil)
	if next != StateEntry || !fx.Reset {
		t.Fatalf("start over -> %s reset=%v", next, fx.Reset)
	}
	if len(fx.Messages) == 0 {
		t.Fatal("welcome copy missing after reset")
	}
}

func TestHardStopPromptThenForcedProgression(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	tb := freshTimebox()
	lim := limits()

	// Burn 18 turns before evaluating: hard stop is flagged, grace not spent.
	for i := 0; i < 18; i++ {
		tb.RegisterTurn(false, lim)
	}

	next, fx := Transition(StateTimeline, EventMessage, p, tb, lim, nil)
	if next != StateTimeline || !fx.HardStopPrompt {
		t.Fatalf("turn 18: next=%s prompt=%v, want stay+prompt", next, fx.HardStopPrompt)
	}
	if len(fx.Buttons) != 3 {
		t.Fatalf("hard-stop buttons = %d, want 3", len(fx.Buttons))
	}

	// Two more user turns arrive and still only prompt.
	tb.RegisterTurn(false, lim)
	next, fx = Transition(StateTimeline, EventMessage, p, tb, lim, nil)
	if next != StateTimeline || !fx.HardStopPrompt {
		t.Fatalf("turn 19: next=%s, want stay", next)
	}
	tb.RegisterTurn(false, lim)

	// Grace period spent: the next evaluation forces the checkpoint.
	next, _ = Transition(StateTimeline, EventMessage, p, tb, lim, nil)
	if next != StateCheckpoint {
		t.Fatalf("after grace: next=%s, want forced checkpoint", next)
	}
}

func TestHardStopDoesNotFirePastCheckpoint(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	tb := freshTimebox()
	lim := limits()
	for i := 0; i < 25; i++ {
		tb.RegisterTurn(false, lim)
	}

	next, fx := Transition(StateCheckpoint, EventMessage, p, tb, lim, nil)
	if fx.HardStopPrompt {
		t.Fatal("hard stop fired at the checkpoint")
	}
	if next != StateCheckpoint {
		t.Fatalf("next = %s", next)
	}
}

func TestCheckpointActions(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, fx := Transition(StateCheckpoint, EventFixAssumption, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint || len(fx.Messages) == 0 {
		t.Fatalf("fix: next=%s msgs=%d", next, len(fx.Messages))
	}
	next, fx = Transition(StateCheckpoint, EventAskQuestion, p, freshTimebox(), limits(), nil)
	if next != StateCheckpoint || !fx.AskImportant {
		t.Fatalf("ask: next=%s askImportant=%v", next, fx.AskImportant)
	}
}

func TestCheckpointRecapIncludesAssumptions(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	set(p, types.FieldIndustry, "hospitality")
	assumptions := []types.Assumption{
		{Statement: "Jurisdiction is US", Confidence: types.ConfidenceLow, Impact: types.ImpactHigh, NeedsConfirmation: true},
	}

	_, fx := Transition(StateStakeholders, EventMessage, p, freshTimebox(), limits(), assumptions)
	joined := strings.Join(fx.Messages, "\n")
	if !strings.Contains(joined, "Industry") {
		t.Errorf("recap missing field summary: %q", joined)
	}
	if !strings.Contains(joined, "Jurisdiction is US") {
		t.Errorf("recap missing assumptions: %q", joined)
	}
}

func TestPipelineStatesProgress(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	next, _ := Transition(StateRunStage0, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateConfirmType {
		t.Fatalf("run-stage-0 -> %s", next)
	}
	next, _ = Transition(StateRunStages13, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateExports {
		t.Fatalf("run-stage-1-3 -> %s", next)
	}
	next, _ = Transition(StateExports, EventMessage, p, freshTimebox(), limits(), nil)
	if next != StateExports {
		t.Fatalf("exports must be terminal, got %s", next)
	}
}
