// Package export assembles the assessment documents from the pipeline
// results and the intake packet: the full report, an executive summary, the
// capability matrix, and the assumptions log. Documents are markdown;
// Preview renders one for the terminal.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/sync/errgroup"

	"scopenerd/internal/logging"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/taxonomy"
	"scopenerd/internal/types"
)

// Input bundles everything the document builders draw from.
type Input struct {
	SessionID    string
	Packet       *types.IntakePacket
	Assumptions  []types.Assumption
	Results      pipeline.Results
	GoldenThread string
	Taxonomy     *taxonomy.Taxonomy

	// GeneratedAt stamps the documents; zero means now.
	GeneratedAt time.Time
}

func (in Input) timestamp() string {
	t := in.GeneratedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02 15:04")
}

func (in Input) agentType() string {
	return in.Results.Design.EffectiveType()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// AssessmentReport builds the complete markdown report: use case definition,
// research findings, requirements, agent design, and capability mapping.
func AssessmentReport(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AI Agent Capability Assessment Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", in.timestamp())
	fmt.Fprintf(&b, "**Agent Type:** %s\n\n---\n\n", in.agentType())

	writeSummaryTable(&b, in)
	writeUseCaseDefinition(&b, in)
	writeResearchFindings(&b, in.Results.Research)
	writeRequirements(&b, in.Results.Requirements)
	writeAgentDesign(&b, in.Results.Design)
	writeCapabilityMapping(&b, in.Results.Mapping)
	writeAppendix(&b, in.Taxonomy)

	return b.String()
}

func writeSummaryTable(b *strings.Builder, in Input) {
	mapped, essential := 0, 0
	if m := in.Results.Mapping; m != nil {
		mapped = len(m.Mappings)
		essential = len(m.Essential)
	}

	fmt.Fprintf(b, "## Executive Summary\n\n")
	fmt.Fprintf(b, "| Parameter | Value |\n|-----------|-------|\n")
	fmt.Fprintf(b, "| Industry | %s |\n", orNA(in.Packet.Industry.Value))
	fmt.Fprintf(b, "| Jurisdiction | %s |\n", orNA(in.Packet.Jurisdiction.Value))
	fmt.Fprintf(b, "| Agent Type | %s |\n", in.agentType())
	fmt.Fprintf(b, "| Capabilities Mapped | %d |\n", mapped)
	fmt.Fprintf(b, "| Essential Capabilities | %d |\n\n---\n\n", essential)
}

func writeUseCaseDefinition(b *strings.Builder, in Input) {
	p := in.Packet
	fmt.Fprintf(b, "## 1. Use Case Definition\n\n")
	fmt.Fprintf(b, "### Industry Context\n")
	fmt.Fprintf(b, "**Industry:** %s\n", orNA(p.Industry.Value))
	fmt.Fprintf(b, "**Jurisdiction:** %s\n", orNA(p.Jurisdiction.Value))
	fmt.Fprintf(b, "**Organization Size:** %s\n", orNA(p.OrganizationSize.Bucket))
	fmt.Fprintf(b, "**Timeline:** %s\n\n", orNA(p.Timeline.Bucket))

	fmt.Fprintf(b, "### Use Case Description\n%s\n\n", orNA(p.UseCaseIntent.Value))

	if in.GoldenThread != "" {
		fmt.Fprintf(b, "### In the User's Words\n> %s\n\n", in.GoldenThread)
	}
	if p.IntegrationSurface.IsSet() {
		fmt.Fprintf(b, "### Existing Systems\n%s\n\n", strings.Join(p.IntegrationSurface.Systems, ", "))
	}
	if p.RiskPosture.IsSet() {
		fmt.Fprintf(b, "### Risk Posture\n**Level:** %s\n", p.RiskPosture.Level)
		if p.RiskPosture.WorstCase != "" {
			fmt.Fprintf(b, "**Worst Case:** %s\n", p.RiskPosture.WorstCase)
		}
		b.WriteString("\n")
	}
	if p.Boundaries.IsSet() {
		fmt.Fprintf(b, "### Boundaries (Non-Goals)\n%s\n\n", p.Boundaries.Value)
	}
	b.WriteString("---\n\n")
}

func writeResearchFindings(b *strings.Builder, r *pipeline.ResearchResult) {
	fmt.Fprintf(b, "## 2. Research Findings\n\n")
	if r == nil || r.Status != pipeline.StatusComplete {
		b.WriteString("*Research not conducted*\n\n---\n\n")
		return
	}

	fmt.Fprintf(b, "### Preliminary Assessment\n")
	fmt.Fprintf(b, "- **Go/No-Go Recommendation:** %s\n", strings.ToUpper(r.GoNoGo))
	fmt.Fprintf(b, "- **Recommended Agent Type:** %s\n", r.RecommendedType)
	fmt.Fprintf(b, "- **Confidence Level:** %s\n\n", strings.ToUpper(r.ConfidenceLevel))

	if len(r.KeyRisks) > 0 {
		fmt.Fprintf(b, "### Key Risk Factors\n")
		for _, risk := range r.KeyRisks {
			fmt.Fprintf(b, "- %s\n", risk)
		}
		b.WriteString("\n")
	}
	if len(r.CriticalSuccessFactors) > 0 {
		fmt.Fprintf(b, "### Critical Success Factors\n")
		for _, f := range r.CriticalSuccessFactors {
			fmt.Fprintf(b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "### Research Areas\n\n")
	for _, area := range []pipeline.ResearchArea{
		r.IndustryAdoption,
		r.RegulatoryEnvironment,
		r.TechnicalIntegration,
		r.RiskFailureModes,
		r.EconomicViability,
	} {
		findings := area.Findings
		if findings == "" {
			findings = "*No findings*"
		}
		fmt.Fprintf(b, "#### %s\n**Confidence:** %s\n\n%s\n\n", area.Name, strings.ToUpper(area.Confidence), findings)
	}

	if r.Rationale != "" {
		fmt.Fprintf(b, "### Recommendation Rationale\n%s\n\n", r.Rationale)
	}
	b.WriteString("---\n\n")
}

func writeRequirements(b *strings.Builder, r *pipeline.RequirementsResult) {
	fmt.Fprintf(b, "## 3. Business Requirements\n\n")
	if r == nil || r.Status != pipeline.StatusComplete {
		b.WriteString("*Requirements not generated*\n\n---\n\n")
		return
	}
	b.WriteString(r.Text)
	b.WriteString("\n\n---\n\n")
}

func writeAgentDesign(b *strings.Builder, d *pipeline.AgentDesignResult) {
	fmt.Fprintf(b, "## 4. Agent Design\n\n")
	fmt.Fprintf(b, "### Recommended Agent Type: %s\n\n", d.EffectiveType())
	if d == nil || d.Status != pipeline.StatusComplete {
		b.WriteString("*Agent design not generated*\n\n---\n\n")
		return
	}
	if d.ConfirmedType != "" && d.ConfirmedType != d.RecommendedType {
		fmt.Fprintf(b, "The user confirmed **%s**, overriding the recommended %s.\n\n", d.ConfirmedType, d.RecommendedType)
	}
	if d.Justification != "" {
		fmt.Fprintf(b, "### Justification\n%s\n\n", d.Justification)
	}
	fmt.Fprintf(b, "### Full Design Document\n%s\n\n---\n\n", d.Document)
}

func writeCapabilityMapping(b *strings.Builder, m *pipeline.MappingResult) {
	fmt.Fprintf(b, "## 5. Capability Mapping\n\n")
	if m == nil || m.Status != pipeline.StatusComplete {
		b.WriteString("*Capability mapping not generated*\n\n---\n\n")
		return
	}

	fmt.Fprintf(b, "### Summary\n")
	fmt.Fprintf(b, "- **Total Capabilities Mapped:** %d\n", len(m.Mappings))
	fmt.Fprintf(b, "- **Essential:** %d\n", len(m.Essential))
	fmt.Fprintf(b, "- **Advanced:** %d\n", len(m.Advanced))
	fmt.Fprintf(b, "- **Optional:** %d\n\n", len(m.Optional))

	writeCapList(b, "Essential Capabilities", m.Essential)
	writeCapList(b, "Advanced Capabilities", m.Advanced)
	writeCapList(b, "Optional Capabilities", m.Optional)

	fmt.Fprintf(b, "### Detailed Mapping\n%s\n\n---\n\n", m.Document)
}

func writeCapList(b *strings.Builder, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n", title)
	for _, id := range ids {
		fmt.Fprintf(b, "- %s\n", id)
	}
	b.WriteString("\n")
}

func writeAppendix(b *strings.Builder, tax *taxonomy.Taxonomy) {
	fmt.Fprintf(b, "## Appendix\n\n### Methodology Reference\n")
	fmt.Fprintf(b, "This assessment maps requirements onto a capability reference table organized by category:\n\n")
	if tax != nil {
		for i, cat := range tax.Categories() {
			fmt.Fprintf(b, "%d. **%s - %s**\n", i+1, cat.ID, cat.Name)
		}
		b.WriteString("\n### Agent Types (T0-T4)\n")
		for _, code := range []string{"T0", "T1", "T2", "T3", "T4"} {
			if desc, ok := tax.AgentType(code); ok {
				fmt.Fprintf(b, "- **%s:** %s\n", code, desc)
			}
		}
	}
	b.WriteString("\n")
}

// ExecutiveSummary builds the short leadership-facing brief.
func ExecutiveSummary(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Executive Summary\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n", in.timestamp())
	fmt.Fprintf(&b, "**Industry:** %s\n\n", orNA(in.Packet.Industry.Value))

	goNoGo := "N/A"
	if r := in.Results.Research; r != nil && r.Status == pipeline.StatusComplete {
		goNoGo = strings.ToUpper(r.GoNoGo)
	}
	mapped, essential := 0, 0
	if m := in.Results.Mapping; m != nil {
		mapped = len(m.Mappings)
		essential = len(m.Essential)
	}

	fmt.Fprintf(&b, "## Key Findings\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Go/No-Go | %s |\n", goNoGo)
	fmt.Fprintf(&b, "| Recommended Agent Type | %s |\n", in.agentType())
	fmt.Fprintf(&b, "| Capabilities Required | %d |\n", mapped)
	fmt.Fprintf(&b, "| Essential Capabilities | %d |\n\n", essential)

	fmt.Fprintf(&b, "## Recommendation\n\n")
	fmt.Fprintf(&b, "Based on the assessment, we recommend proceeding with a **%s** agent architecture.\n\n", in.agentType())
	if d := in.Results.Design; d != nil && d.Justification != "" {
		fmt.Fprintf(&b, "**Justification:** %s\n\n", clip(d.Justification, 500))
	}
	if r := in.Results.Research; r != nil && r.Rationale != "" {
		fmt.Fprintf(&b, "**Rationale:** %s\n", clip(r.Rationale, 500))
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CapabilityMatrix renders the full reference table with each capability's
// assigned priority, grouped by category. Unmapped capabilities show a dash.
func CapabilityMatrix(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Capability Matrix\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n**Agent Type:** %s\n\n", in.timestamp(), in.agentType())

	priority := make(map[string]string)
	if m := in.Results.Mapping; m != nil {
		for _, mp := range m.Mappings {
			priority[mp.CapabilityID] = mp.Priority
		}
	}

	if in.Taxonomy == nil {
		b.WriteString("*No capability table loaded*\n")
		return b.String()
	}

	for _, cat := range in.Taxonomy.Categories() {
		fmt.Fprintf(&b, "## %s (%s)\n\n", cat.Name, cat.ID)
		fmt.Fprintf(&b, "| ID | Capability | Priority |\n|----|-----------|----------|\n")
		for _, c := range cat.Capabilities {
			p := priority[c.ID]
			if p == "" {
				p = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", c.ID, c.Name, p)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AssumptionsLog renders every assumption with its impact, confidence, and
// status, so the reader can see what the assessment is conditional on.
func AssumptionsLog(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Working Assumptions\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", in.timestamp())

	if len(in.Assumptions) == 0 {
		b.WriteString("No assumptions were made; every field was stated by the user.\n")
		return b.String()
	}

	b.WriteString("The assessment's conclusions are conditional on these being true:\n\n")
	for i, a := range in.Assumptions {
		marker := "?"
		switch a.Status {
		case types.AssumptionConfirmed, types.AssumptionCorrected:
			marker = "✓"
		case types.AssumptionNeedsRevalidation:
			marker = "!"
		}
		fmt.Fprintf(&b, "%d. %s **%s**\n", i+1, marker, a.Statement)
		fmt.Fprintf(&b, "   - Impact: %s | Confidence: %s | Status: %s\n\n",
			strings.ToUpper(string(a.Impact)), strings.ToUpper(string(a.Confidence)), a.Status)
	}
	return b.String()
}

// file names under the export directory
const (
	FileReport      = "assessment_report.md"
	FileSummary     = "executive_summary.md"
	FileMatrix      = "capability_matrix.md"
	FileAssumptions = "assumptions_log.md"
)

// WriteAll generates the four documents and writes them to dir concurrently.
// It returns the written paths; any failed write fails the whole export.
func WriteAll(dir string, in Input) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}

	docs := []struct {
		name  string
		build func(Input) string
	}{
		{FileReport, AssessmentReport},
		{FileSummary, ExecutiveSummary},
		{FileMatrix, CapabilityMatrix},
		{FileAssumptions, AssumptionsLog},
	}

	var g errgroup.Group
	paths := make([]string, len(docs))
	for i, d := range docs {
		i, d := i, d
		g.Go(func() error {
			path := filepath.Join(dir, d.name)
			if err := os.WriteFile(path, []byte(d.build(in)), 0o644); err != nil {
				logging.ExportError("write %s: %v", d.name, err)
				return fmt.Errorf("write %s: %w", d.name, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Export("wrote %d documents to %s", len(paths), dir)
	return paths, nil
}

// Preview renders a markdown document for the terminal, falling back to the
// raw text when rendering is unavailable.
func Preview(doc string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = doc
		}
	}()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return doc
	}
	rendered, err := renderer.Render(doc)
	if err != nil {
		return doc
	}
	return rendered
}
