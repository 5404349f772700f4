package pipeline

import (
	"context"
	"fmt"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
)

// ResearchArea is one of the five viability research lenses.
type ResearchArea struct {
	Name       string `json:"name"`
	Findings   string `json:"findings"`
	Confidence string `json:"confidence"`
}

// ResearchResult is the stage-0 output: five research areas plus the
// preliminary go/caution/no-go assessment.
type ResearchResult struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`

	IndustryAdoption      ResearchArea `json:"industry_adoption"`
	RegulatoryEnvironment ResearchArea `json:"regulatory_environment"`
	TechnicalIntegration  ResearchArea `json:"technical_integration"`
	RiskFailureModes      ResearchArea `json:"risk_failure_modes"`
	EconomicViability     ResearchArea `json:"economic_viability"`

	GoNoGo                 string   `json:"go_no_go"`
	RecommendedType        string   `json:"recommended_type"`
	ConfidenceLevel        string   `json:"confidence_level"`
	KeyRisks               []string `json:"key_risks,omitempty"`
	CriticalSuccessFactors []string `json:"critical_success_factors,omitempty"`
	Rationale              string   `json:"rationale,omitempty"`

	FullContent string `json:"full_content,omitempty"`
}

const researchSystem = `You are a senior research analyst specializing in industrial AI implementations.

Conduct a viability assessment for an AI agent use case. Cover five areas, each under its own markdown header: Industry AI Adoption, Regulatory Environment, Technical Integration, Risk & Failure Modes, Economic Viability. Start each area with a short summary, then detailed findings. Be honest about uncertainty.

When recommending an agent type, use the T0-T4 ladder:
- T0: static rule-based automation, no learning
- T1: conversational interface, basic context
- T2: procedural workflow, multi-step tool integration
- T3: cognitive autonomy, planning and learning
- T4: multi-agent system, distributed collaboration

End with a Preliminary Assessment section containing exactly:
- **Go/No-Go Recommendation:** [Go/Caution/No-Go]
- **Recommended Agent Type:** [T0-T4]
- **Confidence Level:** [High/Medium/Low]
- **Key Risk Factors:** (3-5 bullets)
- **Critical Success Factors:** (3-5 bullets)
- **Recommendation Rationale:** a paragraph explaining the call.`

// RunResearch executes stage 0.
func (pl *Pipeline) RunResearch(ctx context.Context, pctx handoff.PipelineContext) *ResearchResult {
	res := &ResearchResult{Status: StatusInProgress}

	prompt := contextHeader(pctx) + "\nConduct the full viability assessment for this use case."

	content, err := pl.complete(ctx, researchSystem, prompt)
	if err != nil {
		res.Status = StatusError
		res.Err = fmt.Sprintf("research: %v", err)
		return res
	}

	res.Status = StatusComplete
	res.FullContent = content

	res.IndustryAdoption = area("Industry AI Adoption", extractSection(content, "Industry AI Adoption", "AI Adoption"))
	res.RegulatoryEnvironment = area("Regulatory Environment", extractSection(content, "Regulatory Environment", "Regulatory"))
	res.TechnicalIntegration = area("Technical Integration", extractSection(content, "Technical Integration", "Integration"))
	res.RiskFailureModes = area("Risk & Failure Modes", extractSection(content, "Risk & Failure Modes", "Failure Modes", "Risk"))
	res.EconomicViability = area("Economic Viability", extractSection(content, "Economic Viability", "Economic"))

	res.GoNoGo = extractVerdict(content)
	res.RecommendedType = extractAgentType(content)
	res.ConfidenceLevel = extractConfidence(content)
	res.KeyRisks = extractBullets(content, "Key Risk Factors", "Risk Factors", "Key Risks")
	res.CriticalSuccessFactors = extractBullets(content, "Critical Success Factors", "Success Factors")
	res.Rationale = extractSection(content, "Recommendation Rationale", "Rationale")

	logging.Pipeline("research complete: %s, recommended %s (%s confidence)",
		res.GoNoGo, res.RecommendedType, res.ConfidenceLevel)
	return res
}

func area(name, findings string) ResearchArea {
	return ResearchArea{Name: name, Findings: findings, Confidence: areaConfidence(findings)}
}
