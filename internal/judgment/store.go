// Package judgment maintains the intake packet: monotonic field updates,
// merge of accumulated chat text into still-unset fields, blocker gating,
// and the dependency ripple that re-derives risk posture when industry is
// corrected.
package judgment

import (
	"fmt"
	"strings"

	"scopenerd/internal/perception"
	"scopenerd/internal/types"
)

// shouldOverwrite implements the monotonic confidence rule: an existing
// value only yields to equal-or-higher confidence, except user edits, which
// always win.
func shouldOverwrite(existingSet bool, existing, incoming types.Confidence, source types.Source) bool {
	if !existingSet {
		return true
	}
	if source == types.SourceUserEdit {
		return true
	}
	return incoming.Rank() >= existing.Rank()
}

// Update applies a judgment-shaped field. Returns whether the packet changed.
func Update(p *types.IntakePacket, id types.FieldID, f types.JudgmentField) bool {
	if !f.IsSet() {
		return false
	}
	target := judgmentSlot(p, id)
	if target == nil {
		return false
	}
	if !shouldOverwrite(target.IsSet(), target.Confidence, f.Confidence, f.Source) {
		return false
	}
	*target = f
	return true
}

func judgmentSlot(p *types.IntakePacket, id types.FieldID) *types.JudgmentField {
	switch id {
	case types.FieldIndustry:
		return &p.Industry
	case types.FieldUseCaseIntent:
		return &p.UseCaseIntent
	case types.FieldOpportunityShape:
		return &p.OpportunityShape
	case types.FieldJurisdiction:
		return &p.Jurisdiction
	case types.FieldStakeholderReality:
		return &p.StakeholderReality
	case types.FieldBoundaries:
		return &p.Boundaries
	case types.FieldConfirmedAgentType:
		return &p.ConfirmedAgentType
	}
	return nil
}

// UpdateBucket applies a bucketed field (timeline, organization size).
func UpdateBucket(p *types.IntakePacket, id types.FieldID, b types.BucketField) bool {
	if !b.IsSet() {
		return false
	}
	var target *types.BucketField
	switch id {
	case types.FieldTimeline:
		target = &p.Timeline
	case types.FieldOrganizationSize:
		target = &p.OrganizationSize
	default:
		return false
	}
	if !shouldOverwrite(target.IsSet(), target.Confidence, b.Confidence, b.Source) {
		return false
	}
	*target = b
	return true
}

// UpdateIntegration applies the integration surface.
func UpdateIntegration(p *types.IntakePacket, f types.IntegrationField) bool {
	if !f.IsSet() {
		return false
	}
	if !shouldOverwrite(p.IntegrationSurface.IsSet(), p.IntegrationSurface.Confidence, f.Confidence, f.Source) {
		return false
	}
	p.IntegrationSurface = f
	return true
}

// UpdateRisk applies the risk posture.
func UpdateRisk(p *types.IntakePacket, f types.RiskField) bool {
	if !f.IsSet() {
		return false
	}
	if !shouldOverwrite(p.RiskPosture.IsSet(), p.RiskPosture.Confidence, f.Confidence, f.Source) {
		return false
	}
	p.RiskPosture = f
	return true
}

// Merge scans the accumulated user messages for any still-unset fields and
// fills them by deterministic inference, in a fixed left-to-right order:
// industry, use_case_intent, opportunity_shape, jurisdiction, timeline,
// organization_size, integration_surface, risk_posture. Everything merged
// here carries source=inferred so the assumption tracker will surface it for
// confirmation. Returns the blocker fields still open afterwards.
func Merge(userMessages []string, p *types.IntakePacket) []types.FieldID {
	userText := strings.Join(userMessages, " ")

	if !p.Industry.IsSet() {
		if industry := perception.DetectIndustry(userText); industry != "" {
			p.Industry = types.JudgmentField{
				Value:      industry,
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.UseCaseIntent.IsSet() {
		// First substantial user message stands in for the intent.
		for _, msg := range userMessages {
			if len(msg) > 20 {
				value := msg
				if len(value) > 500 {
					value = value[:500]
				}
				p.UseCaseIntent = types.JudgmentField{
					Value:      value,
					Confidence: types.ConfidenceMed,
					Source:     types.SourceInferred,
				}
				break
			}
		}
	}

	if !p.OpportunityShape.IsSet() {
		if shape := perception.DetectOpportunity(userText); shape != "" {
			p.OpportunityShape = types.JudgmentField{
				Value:      string(shape),
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.Jurisdiction.IsSet() {
		if loc := perception.DetectLocation(userText); loc != "" {
			p.Jurisdiction = types.JudgmentField{
				Value:      loc,
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.Timeline.IsSet() {
		if bucket := perception.DetectTimeline(userText); bucket != "" {
			p.Timeline = types.BucketField{
				Bucket:     string(bucket),
				Raw:        userText,
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.OrganizationSize.IsSet() {
		if bucket := perception.DetectOrgSize(userText); bucket != "" {
			p.OrganizationSize = types.BucketField{
				Bucket:     string(bucket),
				Raw:        userText,
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.IntegrationSurface.IsSet() {
		if systems := perception.DetectSystems(userText); len(systems) > 0 {
			p.IntegrationSurface = types.IntegrationField{
				Systems:    systems,
				Summary:    "Integrates with: " + strings.Join(systems, ", "),
				Confidence: types.ConfidenceMed,
				Source:     types.SourceInferred,
			}
		}
	}

	if !p.RiskPosture.IsSet() {
		level, conf := InferRiskPosture(p)
		p.RiskPosture = types.RiskField{
			Level:      level,
			Confidence: conf,
			Source:     types.SourceInferred,
		}
	}

	return OpenQuestions(p)
}

// InferRiskPosture derives a risk level from the industry, then from the
// autonomy language in the use case, defaulting to medium at low confidence.
func InferRiskPosture(p *types.IntakePacket) (types.RiskLevel, types.Confidence) {
	if p.Industry.IsSet() && perception.IsRegulatedIndustry(p.Industry.Value) {
		return types.RiskHigh, types.ConfidenceMed
	}
	useCase := strings.ToLower(p.UseCaseIntent.Value)
	if useCase != "" {
		for _, w := range []string{"autonom", "decision", "approve", "critical"} {
			if strings.Contains(useCase, w) {
				return types.RiskHigh, types.ConfidenceMed
			}
		}
		for _, w := range []string{"assist", "recommend", "suggest", "support"} {
			if strings.Contains(useCase, w) {
				return types.RiskLow, types.ConfidenceMed
			}
		}
	}
	return types.RiskMedium, types.ConfidenceLow
}

// IsRegulatedDomain reports whether the packet's industry triggers the
// integration/risk question branch.
func IsRegulatedDomain(p *types.IntakePacket) bool {
	return p.Industry.IsSet() && perception.IsRegulatedIndustry(p.Industry.Value)
}

// OpenQuestions returns the blocker fields still unset.
func OpenQuestions(p *types.IntakePacket) []types.FieldID {
	var open []types.FieldID
	for _, id := range types.BlockerFields {
		if !p.FieldIsSet(id) {
			open = append(open, id)
		}
	}
	return open
}

// CanProceedToResearch reports whether the first pipeline stage may run:
// industry, use_case_intent and jurisdiction must all be set. The confirmed
// agent type gates the later stages, not this one.
func CanProceedToResearch(p *types.IntakePacket) (bool, []types.FieldID) {
	var missing []types.FieldID
	for _, id := range []types.FieldID{types.FieldIndustry, types.FieldUseCaseIntent, types.FieldJurisdiction} {
		if !p.FieldIsSet(id) {
			missing = append(missing, id)
		}
	}
	return len(missing) == 0, missing
}

// coreFields are the upstream fields whose correction triggers re-derivation.
var coreFields = map[types.FieldID]bool{
	types.FieldIndustry:         true,
	types.FieldUseCaseIntent:    true,
	types.FieldJurisdiction:     true,
	types.FieldOpportunityShape: true,
}

// Ripple re-runs derived inferences after a core field was user-corrected.
// The only derived inference today is risk posture from industry. Returns
// whether the risk posture was re-derived; the caller must mark dependent
// assumptions needs_revalidation so the user re-confirms them.
func Ripple(p *types.IntakePacket, changed types.FieldID) bool {
	if !coreFields[changed] {
		return false
	}
	if changed != types.FieldIndustry {
		return false
	}
	level, conf := InferRiskPosture(p)
	p.RiskPosture = types.RiskField{
		Level:      level,
		WorstCase:  p.RiskPosture.WorstCase,
		Confidence: conf,
		Source:     types.SourceInferred,
		Reasoning:  fmt.Sprintf("re-derived after industry correction to %q", p.Industry.Value),
	}
	return true
}
