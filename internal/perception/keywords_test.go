package perception

import (
	"testing"

	"scopenerd/internal/types"
)

func TestDetectIndustry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"We run banquet halls and want to predict catering demand", "hospitality"},
		{"Our clinic wants to triage patient messages", "healthcare"},
		{"We're a regional bank handling loan applications", "finance"},
		{"We build SaaS software for developers", "technology"},
		{"We manage rental property across three cities", "real_estate"},
		{"Municipal agency processing permit requests", "government"},
		{"We operate wind farm maintenance crews", "energy"},
		{"nothing industry-shaped here", ""},
	}
	for _, tt := range tests {
		if got := DetectIndustry(tt.text); got != tt.want {
			t.Errorf("DetectIndustry(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectIndustryOrderMatters(t *testing.T) {
	t.Parallel()

	// Hospitality vocabulary is checked before technology, so venue software
	// reads as hospitality.
	if got := DetectIndustry("software for wedding venues"); got != "hospitality" {
		t.Errorf("got %q, want hospitality", got)
	}
}

func TestNormalizeIndustry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Hotels", "hospitality"},
		{"Banking", "finance"},
		{"tech", "technology"},
		{"Real Estate", "real_estate"},
		{"aerospace", "aerospace"}, // unrecognized passes through
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeIndustry(tt.in); got != tt.want {
			t.Errorf("NormalizeIndustry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRegulatedIndustry(t *testing.T) {
	t.Parallel()

	for _, regulated := range []string{"healthcare", "finance", "government", "energy", "Banking"} {
		if !IsRegulatedIndustry(regulated) {
			t.Errorf("IsRegulatedIndustry(%q) = false, want true", regulated)
		}
	}
	for _, open := range []string{"hospitality", "retail", "technology", ""} {
		if IsRegulatedIndustry(open) {
			t.Errorf("IsRegulatedIndustry(%q) = true, want false", open)
		}
	}
}

func TestInferRiskFromIndustry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		industry string
		want     types.RiskLevel
	}{
		{"healthcare", types.RiskHigh},
		{"finance", types.RiskHigh},
		{"government", types.RiskHigh},
		{"energy", types.RiskHigh},
		{"hospitality", types.RiskMedium},
		{"retail", types.RiskMedium},
		{"technology", types.RiskLow},
		{"", types.RiskLow},
	}
	for _, tt := range tests {
		if got := InferRiskFromIndustry(tt.industry); got != tt.want {
			t.Errorf("InferRiskFromIndustry(%q) = %q, want %q", tt.industry, got, tt.want)
		}
	}
}

func TestDetectOpportunity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want types.OpportunityShape
	}{
		{"we want to grow sales", types.OpportunityRevenue},
		{"automate the boring parts and save time", types.OpportunityCost},
		{"we need audit compliance", types.OpportunityRisk},
		{"fundamentally reimagine how we operate", types.OpportunityTransform},
		{"hello there", ""},
	}
	for _, tt := range tests {
		if got := DetectOpportunity(tt.text); got != tt.want {
			t.Errorf("DetectOpportunity(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"we operate across the midwest", "US - Midwest"},
		{"our offices are in Germany", "EU"},
		{"we're a Canadian company", "Canada"},
		{"worldwide operations", "Global"},
		{"we are based in the US", "US"},
		{"no location here", ""},
	}
	for _, tt := range tests {
		if got := DetectLocation(tt.text); got != tt.want {
			t.Errorf("DetectLocation(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectLocationNoSubstringFalsePositive(t *testing.T) {
	t.Parallel()

	// "us" must not match inside ordinary words.
	if got := DetectLocation("our business is focused on trust"); got != "" {
		t.Errorf("got %q, want no match", got)
	}
}

func TestDetectOrgSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want types.OrgSizeBucket
	}{
		{"we're a startup", types.OrgSmall},
		{"about 30 people", types.OrgSmall},
		{"200 employees", types.OrgMedium},
		{"mid-size business", types.OrgMedium},
		{"we have 1200 staff", types.OrgLarge},
		{"Fortune 500 multinational", types.OrgEnterprise},
		{"12000 employees worldwide", types.OrgEnterprise},
		{"no sizing info", ""},
	}
	for _, tt := range tests {
		if got := DetectOrgSize(tt.text); got != tt.want {
			t.Errorf("DetectOrgSize(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectTimeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want types.TimelineBucket
	}{
		{"we need this ASAP", types.TimelineUrgent},
		{"this month would be ideal", types.TimelineUrgent},
		{"2 weeks", types.TimelineUrgent},
		{"next quarter", types.TimelineNearTerm},
		{"in 3 months", types.TimelineNearTerm},
		{"2 quarters out", types.TimelineNearTerm},
		{"next year at the earliest", types.TimelineExploratory},
		{"in 2 years", types.TimelineExploratory},
		{"eventually, no rush", types.TimelineExploratory},
		{"just saying hi", ""},
	}
	for _, tt := range tests {
		if got := DetectTimeline(tt.text); got != tt.want {
			t.Errorf("DetectTimeline(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectSystems(t *testing.T) {
	t.Parallel()

	got := DetectSystems("we use Salesforce and an ERP, plus Excel sheets")
	want := map[string]bool{"ERP": true, "Salesforce": true, "Excel": true}
	if len(got) != len(want) {
		t.Fatalf("DetectSystems = %v, want keys %v", got, want)
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected system %q in %v", s, got)
		}
	}

	if got := DetectSystems("no tooling mentioned"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
