// Package pipeline runs the four downstream assessment stages once intake
// completes: viability research, business requirements, agent design, and
// capability mapping. Each stage is one prompt-and-parse LLM call producing
// a typed result; a failure becomes a stage status, never a panic, so the
// conversation layer can always report what happened.
package pipeline

import (
	"context"
	"fmt"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
	"scopenerd/internal/perception"
	"scopenerd/internal/taxonomy"
)

// Status is the lifecycle of one stage result.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Pipeline holds the collaborators shared by all stages.
type Pipeline struct {
	client perception.LLMClient
	tax    *taxonomy.Taxonomy
}

// New builds a pipeline. The taxonomy is required; a nil client makes every
// stage fail cleanly with an error status.
func New(client perception.LLMClient, tax *taxonomy.Taxonomy) *Pipeline {
	return &Pipeline{client: client, tax: tax}
}

// Taxonomy exposes the capability table the pipeline maps against.
func (pl *Pipeline) Taxonomy() *taxonomy.Taxonomy {
	return pl.tax
}

func (pl *Pipeline) complete(ctx context.Context, system, prompt string) (string, error) {
	if pl.client == nil {
		return "", fmt.Errorf("no llm client configured")
	}
	out, err := pl.client.CompleteWithSystem(ctx, system, prompt)
	if err != nil {
		logging.PipelineError("stage call failed: %v", err)
		return "", err
	}
	return out, nil
}

// Results bundles everything the stages produced for export.
type Results struct {
	Research     *ResearchResult
	Requirements *RequirementsResult
	Design       *AgentDesignResult
	Mapping      *MappingResult
}

// RunStages13 runs requirements, agent design, and capability mapping in
// order, each feeding the next. The design's confirmed type must already be
// set by the confirm step between stage 0 and this call.
func (pl *Pipeline) RunStages13(ctx context.Context, pctx handoff.PipelineContext, research *ResearchResult, confirmedType string) Results {
	res := Results{Research: research}

	res.Requirements = pl.RunRequirements(ctx, pctx, research)
	res.Design = pl.RunAgentDesign(ctx, pctx, research, res.Requirements)
	if confirmedType != "" {
		if err := pl.ConfirmType(res.Design, confirmedType); err != nil {
			logging.PipelineError("confirm type: %v", err)
		}
	}
	res.Mapping = pl.RunCapabilityMapping(ctx, pctx, res.Design, res.Requirements)
	return res
}

func contextHeader(pctx handoff.PipelineContext) string {
	s := fmt.Sprintf(`## Use Case Context

**Industry:** %s
**Jurisdiction:** %s
**Organization Size:** %s
**Timeline:** %s

### Use Case Description
%s
`, orUnspecified(pctx.Industry), orUnspecified(pctx.Jurisdiction),
		orUnspecified(pctx.OrganizationSize), orUnspecified(pctx.Timeline),
		orUnspecified(pctx.UseCase))

	if pctx.Boundaries != "" {
		s += "\n### Explicit Boundaries (Non-Goals)\nDo NOT include anything that violates these boundaries:\n" + pctx.Boundaries + "\n"
	}
	if len(pctx.Assumptions) > 0 {
		s += "\n### Key Assumptions\nConclusions should be conditional on these being true:\n"
		for _, a := range pctx.Assumptions {
			s += "- " + a + "\n"
		}
	}
	if pctx.Briefing != "" {
		s += "\n## Prior Context\n\n" + pctx.Briefing + "\n"
	}
	return s
}

func orUnspecified(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
