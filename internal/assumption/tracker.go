// Package assumption tracks the inferences surfaced for user confirmation:
// derivation from the intake packet, ranked display, correction with the
// dependency ripple, and the "most important question" picker.
package assumption

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"scopenerd/internal/judgment"
	"scopenerd/internal/types"
)

// Tracker owns the assumption list for one session.
type Tracker struct {
	assumptions []*types.Assumption
	byField     map[types.FieldID]*types.Assumption
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byField: make(map[types.FieldID]*types.Assumption)}
}

// Restore rebuilds a tracker from a persisted assumption list, preserving
// IDs and statuses.
func Restore(list []types.Assumption) *Tracker {
	t := NewTracker()
	for i := range list {
		a := list[i]
		t.assumptions = append(t.assumptions, &a)
		t.byField[a.Field] = &a
	}
	return t
}

// fieldMeetsRule reports whether the field's provenance makes it an
// assumption: the value was not stated by the user (inferred or keyword
// matched) and we are not certain of it.
func fieldMeetsRule(source types.Source, conf types.Confidence) bool {
	if source != types.SourceInferred && source != types.SourceKeywordMatch {
		return false
	}
	return conf == types.ConfidenceMed || conf == types.ConfidenceLow
}

func impactFor(id types.FieldID) types.AssumptionImpact {
	if types.HighImpactFields[id] {
		return types.ImpactHigh
	}
	return types.ImpactMed
}

// Sync re-derives assumptions from the packet. New qualifying fields get an
// assumed entry; entries whose value changed get their statement refreshed;
// corrected and confirmed entries keep their status. Fields that no longer
// qualify (user stated or confirmed them at high confidence) drop out unless
// they were explicitly corrected.
func (t *Tracker) Sync(p *types.IntakePacket) {
	for _, id := range []types.FieldID{
		types.FieldIndustry,
		types.FieldUseCaseIntent,
		types.FieldOpportunityShape,
		types.FieldJurisdiction,
		types.FieldTimeline,
		types.FieldOrganizationSize,
		types.FieldStakeholderReality,
		types.FieldIntegrationSurface,
		types.FieldRiskPosture,
	} {
		value := p.FieldValue(id)
		conf := p.FieldConfidence(id)
		source := fieldSource(p, id)
		qualifies := p.FieldIsSet(id) && fieldMeetsRule(source, conf)

		existing := t.byField[id]
		switch {
		case qualifies && existing == nil:
			a := &types.Assumption{
				ID:                uuid.NewString(),
				Field:             id,
				Statement:         fmt.Sprintf("%s is %s", id.DisplayName(), value),
				Confidence:        conf,
				Impact:            impactFor(id),
				NeedsConfirmation: conf == types.ConfidenceLow,
				Status:            types.AssumptionAssumed,
			}
			t.assumptions = append(t.assumptions, a)
			t.byField[id] = a
		case qualifies && existing != nil:
			if existing.Status == types.AssumptionCorrected ||
				existing.Status == types.AssumptionConfirmed ||
				existing.Status == types.AssumptionNeedsRevalidation {
				// A revalidation flag means the user must re-confirm; a
				// re-derive must not clear it.
				break
			}
			existing.Statement = fmt.Sprintf("%s is %s", id.DisplayName(), value)
			existing.Confidence = conf
			existing.NeedsConfirmation = conf == types.ConfidenceLow
		case !qualifies && existing != nil:
			if existing.Status == types.AssumptionCorrected {
				break // keep the correction in the log
			}
			t.remove(id)
		}
	}
}

func fieldSource(p *types.IntakePacket, id types.FieldID) types.Source {
	switch id {
	case types.FieldIndustry:
		return p.Industry.Source
	case types.FieldUseCaseIntent:
		return p.UseCaseIntent.Source
	case types.FieldOpportunityShape:
		return p.OpportunityShape.Source
	case types.FieldJurisdiction:
		return p.Jurisdiction.Source
	case types.FieldTimeline:
		return p.Timeline.Source
	case types.FieldOrganizationSize:
		return p.OrganizationSize.Source
	case types.FieldStakeholderReality:
		return p.StakeholderReality.Source
	case types.FieldIntegrationSurface:
		return p.IntegrationSurface.Source
	case types.FieldRiskPosture:
		return p.RiskPosture.Source
	}
	return ""
}

func (t *Tracker) remove(id types.FieldID) {
	delete(t.byField, id)
	for i, a := range t.assumptions {
		if a.Field == id {
			t.assumptions = append(t.assumptions[:i], t.assumptions[i+1:]...)
			return
		}
	}
}

// All returns a copy of every tracked assumption.
func (t *Tracker) All() []types.Assumption {
	out := make([]types.Assumption, 0, len(t.assumptions))
	for _, a := range t.assumptions {
		out = append(out, *a)
	}
	return out
}

// Find returns the assumption with the given ID, or nil.
func (t *Tracker) Find(id string) *types.Assumption {
	for _, a := range t.assumptions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// score ranks an assumption for display: impact weight times inverted
// confidence, so high-impact shaky guesses float to the top.
func score(a types.Assumption) int {
	inverted := map[types.Confidence]int{
		types.ConfidenceLow:  3,
		types.ConfidenceMed:  2,
		types.ConfidenceHigh: 1,
	}
	return a.Impact.Weight() * inverted[a.Confidence]
}

// MaxDisplayed caps the checkpoint list so the recap stays readable.
const MaxDisplayed = 8

// ForDisplay returns assumptions ranked by score descending, capped at
// MaxDisplayed. Ties keep insertion order.
func (t *Tracker) ForDisplay() []types.Assumption {
	ranked := t.All()
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	if len(ranked) > MaxDisplayed {
		ranked = ranked[:MaxDisplayed]
	}
	return ranked
}

// Correct applies a user fix: the target field is set with source=user_edit
// at high confidence, the assumption is marked corrected, and the dependency
// ripple re-derives anything downstream (currently risk posture from
// industry), flagging related assumptions for revalidation.
func (t *Tracker) Correct(assumptionID, newValue string, p *types.IntakePacket) error {
	a := t.Find(assumptionID)
	if a == nil {
		return fmt.Errorf("unknown assumption %q", assumptionID)
	}

	if err := applyUserEdit(p, a.Field, newValue); err != nil {
		return err
	}

	a.Statement = fmt.Sprintf("%s is %s", a.Field.DisplayName(), newValue)
	a.Status = types.AssumptionCorrected
	a.Confidence = types.ConfidenceHigh
	a.NeedsConfirmation = false

	if judgment.Ripple(p, a.Field) {
		t.MarkNeedsRevalidation("industry", "risk")
	}
	return nil
}

// applyUserEdit writes the corrected value through the judgment store,
// shaped for the target field.
func applyUserEdit(p *types.IntakePacket, id types.FieldID, newValue string) error {
	switch id {
	case types.FieldTimeline, types.FieldOrganizationSize:
		ok := judgment.UpdateBucket(p, id, types.BucketField{
			Bucket:     strings.ToLower(strings.TrimSpace(newValue)),
			Raw:        newValue,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
		if !ok {
			return fmt.Errorf("could not apply correction to %s", id)
		}
	case types.FieldIntegrationSurface:
		var systems []string
		for _, s := range strings.Split(newValue, ",") {
			if s = strings.TrimSpace(s); s != "" {
				systems = append(systems, s)
			}
		}
		ok := judgment.UpdateIntegration(p, types.IntegrationField{
			Systems:    systems,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
		if !ok {
			return fmt.Errorf("could not apply correction to %s", id)
		}
	case types.FieldRiskPosture:
		ok := judgment.UpdateRisk(p, types.RiskField{
			Level:      types.RiskLevel(strings.ToLower(strings.TrimSpace(newValue))),
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
		if !ok {
			return fmt.Errorf("could not apply correction to %s", id)
		}
	default:
		ok := judgment.Update(p, id, types.JudgmentField{
			Value:      newValue,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceUserEdit,
		})
		if !ok {
			return fmt.Errorf("could not apply correction to %s", id)
		}
	}
	return nil
}

// Confirm marks an assumption user-confirmed; it stops demanding attention
// but stays in the log.
func (t *Tracker) Confirm(assumptionID string) error {
	a := t.Find(assumptionID)
	if a == nil {
		return fmt.Errorf("unknown assumption %q", assumptionID)
	}
	a.Status = types.AssumptionConfirmed
	a.Confidence = types.ConfidenceHigh
	a.NeedsConfirmation = false
	return nil
}

// MarkNeedsRevalidation flags every assumption whose statement mentions one
// of the given words. Flagged assumptions must be re-confirmed by the user
// rather than silently updated.
func (t *Tracker) MarkNeedsRevalidation(words ...string) {
	for _, a := range t.assumptions {
		if a.Status == types.AssumptionCorrected {
			continue
		}
		lower := strings.ToLower(a.Statement + " " + string(a.Field))
		for _, w := range words {
			if strings.Contains(lower, w) {
				a.Status = types.AssumptionNeedsRevalidation
				a.NeedsConfirmation = true
				break
			}
		}
	}
}

var blockerQuestions = map[types.FieldID]string{
	types.FieldIndustry:      "What industry is this for?",
	types.FieldUseCaseIntent: "What specific problem are you trying to solve?",
	types.FieldJurisdiction:  "Where would this operate? (country or region)",
}

// MostImportantQuestion picks the single question worth asking next: a
// research blocker still missing from the packet, else the highest-impact
// shaky assumption as a yes/no confirmation, else a generic catch-all. The
// agent type is deliberately not asked here; it has its own confirm state
// after research runs.
func (t *Tracker) MostImportantQuestion(p *types.IntakePacket) string {
	if ok, missing := judgment.CanProceedToResearch(p); !ok {
		for _, id := range missing {
			if q, found := blockerQuestions[id]; found {
				return q
			}
		}
	}

	best := -1
	var pick *types.Assumption
	for _, a := range t.assumptions {
		if a.Status == types.AssumptionConfirmed || a.Status == types.AssumptionCorrected {
			continue
		}
		if a.Confidence == types.ConfidenceHigh {
			continue
		}
		if s := score(*a); s > best {
			best = s
			pick = a
		}
	}
	if pick != nil {
		return fmt.Sprintf("Just to confirm: %s. Is that right?", pick.Statement)
	}
	return "Is there anything important about this project we haven't covered?"
}
