package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
)

// Mapping is one capability selected for the design, with its priority.
type Mapping struct {
	CapabilityID   string `json:"capability_id"`
	CapabilityName string `json:"capability_name"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	Priority       string `json:"priority"` // essential, advanced, optional
}

// MappingResult is the stage-3 output: requirements mapped onto the
// 45-capability table.
type MappingResult struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`

	AgentType string    `json:"agent_type"`
	Mappings  []Mapping `json:"mappings,omitempty"`

	Essential []string `json:"essential,omitempty"`
	Advanced  []string `json:"advanced,omitempty"`
	Optional  []string `json:"optional,omitempty"`

	Document string `json:"document,omitempty"`
}

const mappingSystem = `You are a senior AI systems architect mapping requirements onto a capability reference table.

Map the business requirements to specific capabilities from the table provided, using their exact IDs (e.g. PK.OB, CG.PL). Structure your output as markdown with: Executive Summary, Essential Capabilities (must have), Advanced Capabilities (should have), Optional Capabilities (nice to have), Key Recommendations. Under each priority section, list the capability ID, name, and a justification tied to a specific requirement.`

// RunCapabilityMapping executes stage 3 against the confirmed design.
func (pl *Pipeline) RunCapabilityMapping(ctx context.Context, pctx handoff.PipelineContext, design *AgentDesignResult, reqs *RequirementsResult) *MappingResult {
	res := &MappingResult{Status: StatusInProgress, AgentType: design.EffectiveType()}

	if pl.tax == nil {
		res.Status = StatusError
		res.Err = "capability mapping: no taxonomy loaded"
		return res
	}

	prompt := contextHeader(pctx)
	prompt += fmt.Sprintf("\n**Confirmed Agent Type:** %s\n", res.AgentType)
	if reqs != nil && reqs.Status == StatusComplete {
		prompt += "\n## Business Requirements\n\n" + reqs.Text + "\n"
	}
	prompt += "\n## Capability Reference Table\n\n" + pl.tax.PromptTable()
	prompt += "\nMap the requirements to capabilities from the table."

	content, err := pl.complete(ctx, mappingSystem, prompt)
	if err != nil {
		res.Status = StatusError
		res.Err = fmt.Sprintf("capability mapping: %v", err)
		return res
	}

	res.Status = StatusComplete
	res.Document = content
	res.Mappings = pl.parseMappings(content)

	for _, m := range res.Mappings {
		switch m.Priority {
		case "essential":
			res.Essential = append(res.Essential, m.CapabilityID)
		case "advanced":
			res.Advanced = append(res.Advanced, m.CapabilityID)
		default:
			res.Optional = append(res.Optional, m.CapabilityID)
		}
	}

	logging.Pipeline("capability mapping complete: %d capabilities (%d essential)",
		len(res.Mappings), len(res.Essential))
	return res
}

var capIDRe = regexp.MustCompile(`\b([A-Z]{2}\.[A-Z]{2})\b`)

// parseMappings finds every known capability ID in the document and assigns
// its priority from the section it first appears in. IDs not in the
// taxonomy are dropped.
func (pl *Pipeline) parseMappings(content string) []Mapping {
	essential := extractSection(content, "Essential Capabilities", "Essential")
	advanced := extractSection(content, "Advanced Capabilities", "Advanced")
	optional := extractSection(content, "Optional Capabilities", "Optional")

	seen := make(map[string]bool)
	var out []Mapping
	for _, m := range capIDRe.FindAllStringSubmatch(content, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true

		c, ok := pl.tax.ByID(id)
		if !ok {
			logging.Pipeline("mapping referenced unknown capability %s, dropped", id)
			continue
		}

		out = append(out, Mapping{
			CapabilityID:   c.ID,
			CapabilityName: c.Name,
			CategoryID:     c.CategoryID,
			CategoryName:   c.CategoryName,
			Priority:       priorityOf(id, essential, advanced, optional),
		})
	}
	return out
}

func priorityOf(id, essential, advanced, optional string) string {
	switch {
	case strings.Contains(essential, id):
		return "essential"
	case strings.Contains(advanced, id):
		return "advanced"
	case strings.Contains(optional, id):
		return "optional"
	}
	return "optional"
}
