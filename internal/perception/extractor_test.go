package perception

import (
	"context"
	"fmt"
	"testing"

	"scopenerd/internal/types"
)

// mockLLM returns a canned response (or error) for every call.
type mockLLM struct {
	response string
	err      error
	calls    int
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *mockLLM) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestExtractIntentLLMPath(t *testing.T) {
	t.Parallel()

	client := &mockLLM{response: `{"summary": "Predict catering demand for banquet halls", "industry": "hospitality", "needs_more_info": false, "reasoning": "clear use case"}`}
	ex := NewExtractor(client)

	res := ex.ExtractIntent(context.Background(), "We run banquet halls and want to predict catering demand", "")

	if res.UseCaseIntent.Value != "Predict catering demand for banquet halls" {
		t.Errorf("intent = %q", res.UseCaseIntent.Value)
	}
	if res.UseCaseIntent.Confidence != types.ConfidenceHigh || res.UseCaseIntent.Source != types.SourceLLMExtracted {
		t.Errorf("intent provenance = %s/%s", res.UseCaseIntent.Confidence, res.UseCaseIntent.Source)
	}
	if res.Industry.Value != "hospitality" {
		t.Errorf("industry = %q", res.Industry.Value)
	}
	if res.NeedsMoreInfo {
		t.Error("needs_more_info should be false")
	}
}

func TestExtractIntentIndustryOverride(t *testing.T) {
	t.Parallel()

	// Model mis-tags the industry; the explicit "banquet" vocabulary must win.
	client := &mockLLM{response: `{"summary": "Demand forecasting", "industry": "events", "needs_more_info": false}`}
	ex := NewExtractor(client)

	res := ex.ExtractIntent(context.Background(), "We run banquet halls and want to predict catering demand", "")

	if res.Industry.Value != "hospitality" {
		t.Fatalf("industry = %q, want hospitality (keyword override)", res.Industry.Value)
	}
	// "events" normalizes to hospitality too, so force a real disagreement.
	client2 := &mockLLM{response: `{"summary": "Demand forecasting", "industry": "energy", "needs_more_info": false}`}
	res2 := NewExtractor(client2).ExtractIntent(context.Background(), "We run banquet halls and want to predict catering demand", "")
	if res2.Industry.Value != "hospitality" {
		t.Fatalf("industry = %q, want hospitality over model's energy", res2.Industry.Value)
	}
	if res2.Industry.Source != types.SourceKeywordMatch || res2.Industry.Confidence != types.ConfidenceHigh {
		t.Errorf("override provenance = %s/%s, want keyword_match/high", res2.Industry.Source, res2.Industry.Confidence)
	}
}

func TestExtractIntentFallbackOnCallFailure(t *testing.T) {
	t.Parallel()

	client := &mockLLM{err: fmt.Errorf("connection refused")}
	ex := NewExtractor(client)

	res := ex.ExtractIntent(context.Background(), "Our clinic wants to triage patient messages automatically", "")

	// Raw message kept as intent at low confidence; industry from keywords.
	if res.UseCaseIntent.Confidence != types.ConfidenceLow || res.UseCaseIntent.Source != types.SourceAsked {
		t.Errorf("fallback intent provenance = %s/%s", res.UseCaseIntent.Confidence, res.UseCaseIntent.Source)
	}
	if res.Industry.Value != "healthcare" || res.Industry.Source != types.SourceKeywordMatch {
		t.Errorf("fallback industry = %+v", res.Industry)
	}
}

func TestExtractIntentNilClientUsesKeywords(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(nil)
	res := ex.ExtractIntent(context.Background(), "We're a regional bank automating loan review", "")
	if res.Industry.Value != "finance" {
		t.Errorf("industry = %q, want finance", res.Industry.Value)
	}
}

func TestExtractOpportunityRejectsInvalidEnum(t *testing.T) {
	t.Parallel()

	client := &mockLLM{response: `{"goal": "world domination"}`}
	ex := NewExtractor(client)

	got := ex.ExtractOpportunity(context.Background(), "we want to automate the scheduling work", "scheduling automation")
	// Invalid enum falls through to keywords.
	if got.Value != string(types.OpportunityCost) {
		t.Errorf("opportunity = %q, want cost via keyword fallback", got.Value)
	}
	if got.Source != types.SourceKeywordMatch {
		t.Errorf("source = %s, want keyword_match", got.Source)
	}
}

func TestExtractTimelinePreservesRawPhrase(t *testing.T) {
	t.Parallel()

	client := &mockLLM{response: `{"timeline": "near-term", "raw_timeframe": "next quarter", "reasoning": "pilot window"}`}
	ex := NewExtractor(client)

	got := ex.ExtractTimeline(context.Background(), "we'd like to pilot next quarter")
	if got.Bucket != string(types.TimelineNearTerm) {
		t.Errorf("bucket = %q", got.Bucket)
	}
	if got.Raw != "next quarter" {
		t.Errorf("raw = %q, want raw phrase preserved", got.Raw)
	}
}

func TestExtractTimelineUnparsableFallsBack(t *testing.T) {
	t.Parallel()

	client := &mockLLM{response: "I think they are in a hurry."}
	ex := NewExtractor(client)

	got := ex.ExtractTimeline(context.Background(), "we need this in 3 weeks")
	if got.Bucket != string(types.TimelineUrgent) {
		t.Errorf("bucket = %q, want urgent via keyword fallback", got.Bucket)
	}
	if got.Source != types.SourceKeywordMatch {
		t.Errorf("source = %s", got.Source)
	}
}

func TestExtractIntegrationKeywordFallback(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(&mockLLM{err: fmt.Errorf("timeout")})
	got := ex.ExtractIntegration(context.Background(), "everything lives in Salesforce and our ERP")
	if !got.IsSet() {
		t.Fatal("expected systems from keyword fallback")
	}
	if got.Source != types.SourceKeywordMatch {
		t.Errorf("source = %s", got.Source)
	}
}

func TestExtractRiskDefaultsFromIndustry(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(&mockLLM{err: fmt.Errorf("boom")})
	got := ex.ExtractRisk(context.Background(), "mistakes would be annoying", "triage patient messages", "healthcare")
	if got.Level != types.RiskHigh {
		t.Errorf("risk = %q, want high for healthcare default", got.Level)
	}
	if got.Source != types.SourceInferred {
		t.Errorf("source = %s, want inferred", got.Source)
	}
}

func TestExtractRiskLLMPath(t *testing.T) {
	t.Parallel()

	client := &mockLLM{response: `{"risk_level": "medium", "worst_case": "double-booked banquet", "reasoning": "lost revenue, no safety impact"}`}
	ex := NewExtractor(client)

	got := ex.ExtractRisk(context.Background(), "worst case a hall gets double-booked", "catering demand prediction", "hospitality")
	if got.Level != types.RiskMedium {
		t.Errorf("risk = %q", got.Level)
	}
	if got.WorstCase != "double-booked banquet" {
		t.Errorf("worst case = %q", got.WorstCase)
	}
}
