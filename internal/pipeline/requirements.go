package pipeline

import (
	"context"
	"fmt"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
)

// RequirementsResult is the stage-1 output: the full requirements document
// plus the recognizable sections pulled out for display.
type RequirementsResult struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`

	Text     string            `json:"text,omitempty"`
	Sections map[string]string `json:"sections,omitempty"`
}

const requirementsSystem = `You are a senior business analyst generating requirements for an AI agent implementation.

Produce comprehensive business requirements as structured markdown with these sections: Business Objectives, Functional Requirements, Non-Functional Requirements, Data Requirements, Integration Requirements, Compliance Requirements, Success Criteria. Requirements must be specific and testable, and must respect any stated boundaries and assumptions.`

// requirementSections are the headers we try to pull out of the document.
var requirementSections = []string{
	"Business Objectives",
	"Functional Requirements",
	"Non-Functional Requirements",
	"Data Requirements",
	"Integration Requirements",
	"Compliance Requirements",
	"Success Criteria",
}

// RunRequirements executes stage 1 against the research findings.
func (pl *Pipeline) RunRequirements(ctx context.Context, pctx handoff.PipelineContext, research *ResearchResult) *RequirementsResult {
	res := &RequirementsResult{Status: StatusInProgress}

	prompt := contextHeader(pctx) + researchSummary(research) +
		"\nGenerate the complete business requirements document."

	content, err := pl.complete(ctx, requirementsSystem, prompt)
	if err != nil {
		res.Status = StatusError
		res.Err = fmt.Sprintf("requirements: %v", err)
		return res
	}

	res.Status = StatusComplete
	res.Text = content
	res.Sections = make(map[string]string)
	for _, name := range requirementSections {
		if body := extractSection(content, name); body != "" {
			res.Sections[name] = body
		}
	}

	logging.Pipeline("requirements complete: %d sections recognized", len(res.Sections))
	return res
}

// researchSummary folds the stage-0 assessment into a downstream prompt.
func researchSummary(research *ResearchResult) string {
	if research == nil || research.Status != StatusComplete {
		return "\n## Research Findings\n\nNo prior research available.\n"
	}
	s := fmt.Sprintf(`
## Research Findings

- **Go/No-Go:** %s
- **Recommended Agent Type:** %s
- **Confidence:** %s
`, research.GoNoGo, research.RecommendedType, research.ConfidenceLevel)

	if research.RegulatoryEnvironment.Findings != "" {
		s += "\n### Regulatory Context\n" + research.RegulatoryEnvironment.Findings + "\n"
	}
	if research.RiskFailureModes.Findings != "" {
		s += "\n### Risk Factors\n" + research.RiskFailureModes.Findings + "\n"
	}
	return s
}
