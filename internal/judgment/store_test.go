package judgment

import (
	"testing"

	"scopenerd/internal/types"
)

func TestUpdateMonotonicConfidence(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}

	// First write always lands.
	if !Update(p, types.FieldIndustry, types.JudgmentField{
		Value: "hospitality", Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted,
	}) {
		t.Fatal("initial update rejected")
	}

	// Lower confidence cannot overwrite.
	if Update(p, types.FieldIndustry, types.JudgmentField{
		Value: "retail", Confidence: types.ConfidenceLow, Source: types.SourceInferred,
	}) {
		t.Error("low-confidence overwrite accepted")
	}
	if p.Industry.Value != "hospitality" {
		t.Errorf("industry = %q after rejected update", p.Industry.Value)
	}

	// Equal confidence may overwrite.
	if !Update(p, types.FieldIndustry, types.JudgmentField{
		Value: "hospitality and events", Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted,
	}) {
		t.Error("equal-confidence overwrite rejected")
	}
}

func TestUpdateUserEditAlwaysWins(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	Update(p, types.FieldIndustry, types.JudgmentField{
		Value: "technology", Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted,
	})

	ok := Update(p, types.FieldIndustry, types.JudgmentField{
		Value: "healthcare", Confidence: types.ConfidenceHigh, Source: types.SourceUserEdit,
	})
	if !ok || p.Industry.Value != "healthcare" {
		t.Fatalf("user edit rejected: %+v", p.Industry)
	}
}

func TestUpdateIgnoresEmptyValue(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	if Update(p, types.FieldIndustry, types.JudgmentField{Confidence: types.ConfidenceHigh}) {
		t.Error("empty value should never be applied")
	}
}

func TestUpdateBucket(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	if !UpdateBucket(p, types.FieldTimeline, types.BucketField{
		Bucket: string(types.TimelineNearTerm), Raw: "next quarter",
		Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted,
	}) {
		t.Fatal("bucket update rejected")
	}
	if UpdateBucket(p, types.FieldTimeline, types.BucketField{
		Bucket: string(types.TimelineUrgent), Confidence: types.ConfidenceLow, Source: types.SourceInferred,
	}) {
		t.Error("low-confidence bucket overwrite accepted")
	}
	if p.Timeline.Raw != "next quarter" {
		t.Errorf("raw phrase lost: %q", p.Timeline.Raw)
	}
}

func TestMergeFillsUnsetFieldsOnly(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	p.Industry = types.JudgmentField{
		Value: "finance", Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted,
	}

	msgs := []string{
		"We run banquet halls across the midwest and want to predict catering demand",
		"about 200 employees, hoping to pilot next quarter",
	}
	Merge(msgs, p)

	// Pre-set industry survives even though the text screams hospitality.
	if p.Industry.Value != "finance" {
		t.Errorf("merge overwrote set industry: %q", p.Industry.Value)
	}
	if p.UseCaseIntent.Value == "" || p.UseCaseIntent.Source != types.SourceInferred {
		t.Errorf("use case not merged: %+v", p.UseCaseIntent)
	}
	if p.Jurisdiction.Value != "US - Midwest" {
		t.Errorf("jurisdiction = %q", p.Jurisdiction.Value)
	}
	if p.OrganizationSize.Bucket != string(types.OrgMedium) {
		t.Errorf("org size = %q", p.OrganizationSize.Bucket)
	}
	if p.Timeline.Bucket != string(types.TimelineNearTerm) {
		t.Errorf("timeline = %q", p.Timeline.Bucket)
	}
	// Regulated industry (finance) defaults risk posture high.
	if p.RiskPosture.Level != types.RiskHigh {
		t.Errorf("risk = %q", p.RiskPosture.Level)
	}
}

func TestMergeReturnsOpenBlockers(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	open := Merge([]string{"hi"}, p)

	// Nothing substantial: all four blockers stay open.
	want := map[types.FieldID]bool{
		types.FieldIndustry: true, types.FieldUseCaseIntent: true,
		types.FieldJurisdiction: true, types.FieldConfirmedAgentType: true,
	}
	if len(open) != len(want) {
		t.Fatalf("open = %v", open)
	}
	for _, id := range open {
		if !want[id] {
			t.Errorf("unexpected open blocker %s", id)
		}
	}
}

func TestCanProceedToResearch(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	ok, missing := CanProceedToResearch(p)
	if ok || len(missing) != 3 {
		t.Fatalf("empty packet: ok=%v missing=%v", ok, missing)
	}

	p.Industry = types.JudgmentField{Value: "hospitality", Confidence: types.ConfidenceHigh, Source: types.SourceAsked}
	p.UseCaseIntent = types.JudgmentField{Value: "predict catering demand for banquet halls", Confidence: types.ConfidenceHigh, Source: types.SourceAsked}
	p.Jurisdiction = types.JudgmentField{Value: "US", Confidence: types.ConfidenceMed, Source: types.SourceKeywordMatch}

	ok, missing = CanProceedToResearch(p)
	if !ok || missing != nil {
		t.Fatalf("complete packet: ok=%v missing=%v", ok, missing)
	}
	// confirmed_agent_type is not required for stage 0.
}

func TestRippleReInfersRiskFromIndustry(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	p.Industry = types.JudgmentField{Value: "hospitality", Confidence: types.ConfidenceMed, Source: types.SourceInferred}
	p.RiskPosture = types.RiskField{Level: types.RiskMedium, WorstCase: "double bookings", Confidence: types.ConfidenceMed, Source: types.SourceInferred}

	// User corrects industry to healthcare: risk must re-derive to high.
	p.Industry = types.JudgmentField{Value: "healthcare", Confidence: types.ConfidenceHigh, Source: types.SourceUserEdit}
	if !Ripple(p, types.FieldIndustry) {
		t.Fatal("ripple did not fire for industry")
	}
	if p.RiskPosture.Level != types.RiskHigh {
		t.Errorf("risk = %q, want high", p.RiskPosture.Level)
	}
	if p.RiskPosture.Source != types.SourceInferred {
		t.Errorf("source = %q, want inferred", p.RiskPosture.Source)
	}
	if p.RiskPosture.WorstCase != "double bookings" {
		t.Errorf("worst case lost: %q", p.RiskPosture.WorstCase)
	}
}

func TestRippleOnlyFiresForIndustry(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	p.RiskPosture = types.RiskField{Level: types.RiskLow, Confidence: types.ConfidenceHigh, Source: types.SourceLLMExtracted}

	if Ripple(p, types.FieldJurisdiction) {
		t.Error("jurisdiction correction should not re-derive risk")
	}
	if Ripple(p, types.FieldTimeline) {
		t.Error("non-core field should not ripple")
	}
	if p.RiskPosture.Level != types.RiskLow {
		t.Errorf("risk changed: %q", p.RiskPosture.Level)
	}
}

func TestIsRegulatedDomain(t *testing.T) {
	t.Parallel()

	p := &types.IntakePacket{}
	if IsRegulatedDomain(p) {
		t.Error("empty packet regulated")
	}
	p.Industry = types.JudgmentField{Value: "government", Confidence: types.ConfidenceMed, Source: types.SourceInferred}
	if !IsRegulatedDomain(p) {
		t.Error("government not regulated")
	}
}
