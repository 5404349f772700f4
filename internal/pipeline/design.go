package pipeline

import (
	"context"
	"fmt"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
)

// AgentDesignResult is the stage-2 output: the recommended agent type with
// its justification and the architecture design document. ConfirmedType is
// empty until the user confirms or overrides the recommendation.
type AgentDesignResult struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`

	RecommendedType string `json:"recommended_type"`
	ConfirmedType   string `json:"confirmed_type,omitempty"`
	Justification   string `json:"justification,omitempty"`
	Document        string `json:"document,omitempty"`
}

const designSystem = `You are a senior AI systems architect.

Assess the appropriate agent type for this use case and produce an architecture design. Structure your output as markdown with: Agent Type Assessment (with an explicit T0-T4 recommendation and justification), Architecture Overview, Component Design, Human Oversight Model, Implementation Phases.

Type criteria:
- T0 Static Automation: deterministic tasks, rule-based logic sufficient, static environment
- T1 Conversational Agents: natural language interface, information retrieval, basic context
- T2 Procedural Workflow Agents: multi-step processes, tool/API integration, human-in-the-loop checkpoints
- T3 Cognitive Autonomous Agents: self-directed planning, learning and adaptation, limited supervision
- T4 Multi-Agent Generative Systems: multiple specialized agents, distributed coordination, enterprise scale

Recommend the LOWEST type that satisfies the requirements; do not over-engineer.`

// RunAgentDesign executes stage 2.
func (pl *Pipeline) RunAgentDesign(ctx context.Context, pctx handoff.PipelineContext, research *ResearchResult, reqs *RequirementsResult) *AgentDesignResult {
	res := &AgentDesignResult{Status: StatusInProgress}

	prompt := contextHeader(pctx) + researchSummary(research)
	if reqs != nil && reqs.Status == StatusComplete {
		prompt += "\n## Business Requirements\n\n" + reqs.Text + "\n"
	}
	prompt += "\nAssess the agent type and produce the architecture design."

	content, err := pl.complete(ctx, designSystem, prompt)
	if err != nil {
		res.Status = StatusError
		res.Err = fmt.Sprintf("agent design: %v", err)
		return res
	}

	res.Status = StatusComplete
	res.Document = content
	res.RecommendedType = extractAgentType(content)
	res.Justification = extractSection(content, "Agent Type Assessment", "Type Assessment", "Justification")

	logging.Pipeline("agent design complete: recommended %s", res.RecommendedType)
	return res
}

// ConfirmType records the user's confirmed agent type on the design result,
// validating the code against the taxonomy's type ladder.
func (pl *Pipeline) ConfirmType(design *AgentDesignResult, code string) error {
	if design == nil {
		return fmt.Errorf("no design to confirm")
	}
	if pl.tax != nil && !pl.tax.ValidAgentType(code) {
		return fmt.Errorf("unknown agent type %q", code)
	}
	design.ConfirmedType = code
	logging.Pipeline("agent type confirmed: %s (recommended %s)", code, design.RecommendedType)
	return nil
}

// EffectiveType is the confirmed type if present, else the recommendation,
// else the T2 default.
func (d *AgentDesignResult) EffectiveType() string {
	if d == nil {
		return "T2"
	}
	if d.ConfirmedType != "" {
		return d.ConfirmedType
	}
	if d.RecommendedType != "" {
		return d.RecommendedType
	}
	return "T2"
}
