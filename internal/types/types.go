// Package types holds the shared data model for the scopeNERD intake flow:
// judgment fields with confidence and provenance, the typed intake packet,
// and assumptions. Behavior lives in the packages that operate on these
// (judgment, assumption, intake); this package stays dependency-free so
// every layer can import it.
package types

import "strings"

// Confidence expresses how much we trust an extracted value.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceMed  Confidence = "med"
	ConfidenceLow  Confidence = "low"
)

// Rank orders confidence levels for the monotonic-update rule.
// Unknown values rank lowest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMed:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Source records where a judgment value came from.
type Source string

const (
	SourceAsked        Source = "asked"
	SourceInferred     Source = "inferred"
	SourceUserEdit     Source = "user_edit"
	SourceKeywordMatch Source = "keyword_match"
	SourceLLMExtracted Source = "llm_extracted"
)

// FieldID identifies one judgment field on the intake packet.
type FieldID string

const (
	FieldIndustry           FieldID = "industry"
	FieldUseCaseIntent      FieldID = "use_case_intent"
	FieldOpportunityShape   FieldID = "opportunity_shape"
	FieldJurisdiction       FieldID = "jurisdiction"
	FieldTimeline           FieldID = "timeline"
	FieldOrganizationSize   FieldID = "organization_size"
	FieldStakeholderReality FieldID = "stakeholder_reality"
	FieldIntegrationSurface FieldID = "integration_surface"
	FieldRiskPosture        FieldID = "risk_posture"
	FieldBoundaries         FieldID = "boundaries"
	FieldConfirmedAgentType FieldID = "confirmed_agent_type"
)

// MergeOrder is the fixed left-to-right order in which accumulated user text
// is scanned for still-unset fields.
var MergeOrder = []FieldID{
	FieldIndustry,
	FieldUseCaseIntent,
	FieldOpportunityShape,
	FieldJurisdiction,
	FieldTimeline,
	FieldOrganizationSize,
	FieldIntegrationSurface,
	FieldRiskPosture,
}

// BlockerFields must be set before the assessment pipeline may run.
// FieldConfirmedAgentType only gates the stage 1-3 run, not stage 0.
var BlockerFields = []FieldID{
	FieldIndustry,
	FieldUseCaseIntent,
	FieldJurisdiction,
	FieldConfirmedAgentType,
}

// HighImpactFields get impact=high when an assumption is derived for them.
var HighImpactFields = map[FieldID]bool{
	FieldIndustry:      true,
	FieldJurisdiction:  true,
	FieldUseCaseIntent: true,
}

// DisplayName renders a field ID for user-facing copy ("use_case_intent" ->
// "Use case intent").
func (f FieldID) DisplayName() string {
	s := strings.ReplaceAll(string(f), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// OpportunityShape is the closed enum for the user's primary goal.
type OpportunityShape string

const (
	OpportunityRevenue   OpportunityShape = "revenue"
	OpportunityCost      OpportunityShape = "cost"
	OpportunityRisk      OpportunityShape = "risk"
	OpportunityTransform OpportunityShape = "transform"
)

// TimelineBucket normalizes free-form timeframe language.
type TimelineBucket string

const (
	TimelineUrgent      TimelineBucket = "urgent"      // <= 1 month
	TimelineNearTerm    TimelineBucket = "near-term"   // <= 6 months
	TimelineExploratory TimelineBucket = "exploratory" // > 6 months or no concrete date
)

// OrgSizeBucket buckets organization scale.
type OrgSizeBucket string

const (
	OrgSmall      OrgSizeBucket = "small"      // under 50
	OrgMedium     OrgSizeBucket = "medium"     // 50-500
	OrgLarge      OrgSizeBucket = "large"      // 500-5000
	OrgEnterprise OrgSizeBucket = "enterprise" // 5000+
)

// RiskLevel is the assessed failure-impact level.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// JudgmentField is one extracted datum with its provenance. An empty Value
// means the field is unset; a set field never carries ConfidenceHigh with an
// empty value.
type JudgmentField struct {
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// IsSet reports whether the field holds a value.
func (j JudgmentField) IsSet() bool { return j.Value != "" }

// BucketField is a judgment field whose value is a bucket plus the raw user
// phrase that produced it (timeline, organization size).
type BucketField struct {
	Bucket     string     `json:"bucket"`
	Raw        string     `json:"raw,omitempty"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// IsSet reports whether the bucket has been assigned.
func (b BucketField) IsSet() bool { return b.Bucket != "" }

// IntegrationField captures the set of existing systems the agent must touch.
type IntegrationField struct {
	Systems    []string   `json:"systems,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
}

// IsSet reports whether any systems were captured.
func (i IntegrationField) IsSet() bool { return len(i.Systems) > 0 }

// RiskField is the risk posture judgment plus the user's worst-case framing.
type RiskField struct {
	Level      RiskLevel  `json:"level"`
	WorstCase  string     `json:"worst_case,omitempty"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// IsSet reports whether a risk level has been assigned.
func (r RiskField) IsSet() bool { return r.Level != "" }

// IntakePacket is the accumulating set of judgments for one session. One
// named, typed field per domain attribute; created empty at session start and
// mutated field-by-field as the state machine progresses. Only an explicit
// restart discards it.
type IntakePacket struct {
	Industry           JudgmentField    `json:"industry"`
	UseCaseIntent      JudgmentField    `json:"use_case_intent"`
	OpportunityShape   JudgmentField    `json:"opportunity_shape"`
	Jurisdiction       JudgmentField    `json:"jurisdiction"`
	Timeline           BucketField      `json:"timeline"`
	OrganizationSize   BucketField      `json:"organization_size"`
	StakeholderReality JudgmentField    `json:"stakeholder_reality"`
	IntegrationSurface IntegrationField `json:"integration_surface"`
	RiskPosture        RiskField        `json:"risk_posture"`
	Boundaries         JudgmentField    `json:"boundaries"`
	ConfirmedAgentType JudgmentField    `json:"confirmed_agent_type"`
}

// FieldIsSet reports whether the named field holds a value, across the three
// field shapes.
func (p *IntakePacket) FieldIsSet(id FieldID) bool {
	switch id {
	case FieldIndustry:
		return p.Industry.IsSet()
	case FieldUseCaseIntent:
		return p.UseCaseIntent.IsSet()
	case FieldOpportunityShape:
		return p.OpportunityShape.IsSet()
	case FieldJurisdiction:
		return p.Jurisdiction.IsSet()
	case FieldTimeline:
		return p.Timeline.IsSet()
	case FieldOrganizationSize:
		return p.OrganizationSize.IsSet()
	case FieldStakeholderReality:
		return p.StakeholderReality.IsSet()
	case FieldIntegrationSurface:
		return p.IntegrationSurface.IsSet()
	case FieldRiskPosture:
		return p.RiskPosture.IsSet()
	case FieldBoundaries:
		return p.Boundaries.IsSet()
	case FieldConfirmedAgentType:
		return p.ConfirmedAgentType.IsSet()
	}
	return false
}

// FieldConfidence returns the confidence recorded for the named field, or
// ConfidenceLow when unset.
func (p *IntakePacket) FieldConfidence(id FieldID) Confidence {
	switch id {
	case FieldIndustry:
		return p.Industry.Confidence
	case FieldUseCaseIntent:
		return p.UseCaseIntent.Confidence
	case FieldOpportunityShape:
		return p.OpportunityShape.Confidence
	case FieldJurisdiction:
		return p.Jurisdiction.Confidence
	case FieldTimeline:
		return p.Timeline.Confidence
	case FieldOrganizationSize:
		return p.OrganizationSize.Confidence
	case FieldStakeholderReality:
		return p.StakeholderReality.Confidence
	case FieldIntegrationSurface:
		return p.IntegrationSurface.Confidence
	case FieldRiskPosture:
		return p.RiskPosture.Confidence
	case FieldBoundaries:
		return p.Boundaries.Confidence
	case FieldConfirmedAgentType:
		return p.ConfirmedAgentType.Confidence
	}
	return ConfidenceLow
}

// FieldValue renders the current value of the named field for display
// (bucket for bucketed fields, joined system list for integration surface).
func (p *IntakePacket) FieldValue(id FieldID) string {
	switch id {
	case FieldIndustry:
		return p.Industry.Value
	case FieldUseCaseIntent:
		return p.UseCaseIntent.Value
	case FieldOpportunityShape:
		return p.OpportunityShape.Value
	case FieldJurisdiction:
		return p.Jurisdiction.Value
	case FieldTimeline:
		return p.Timeline.Bucket
	case FieldOrganizationSize:
		return p.OrganizationSize.Bucket
	case FieldStakeholderReality:
		return p.StakeholderReality.Value
	case FieldIntegrationSurface:
		return strings.Join(p.IntegrationSurface.Systems, ", ")
	case FieldRiskPosture:
		return string(p.RiskPosture.Level)
	case FieldBoundaries:
		return p.Boundaries.Value
	case FieldConfirmedAgentType:
		return p.ConfirmedAgentType.Value
	}
	return ""
}

// AssumptionImpact grades how much an assumption matters downstream.
type AssumptionImpact string

const (
	ImpactHigh AssumptionImpact = "high"
	ImpactMed  AssumptionImpact = "med"
	ImpactLow  AssumptionImpact = "low"
)

// Weight maps impact to its ranking weight.
func (i AssumptionImpact) Weight() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMed:
		return 2
	case ImpactLow:
		return 1
	}
	return 1
}

// AssumptionStatus tracks the confirm/correct lifecycle.
type AssumptionStatus string

const (
	AssumptionAssumed           AssumptionStatus = "assumed"
	AssumptionConfirmed         AssumptionStatus = "confirmed"
	AssumptionCorrected         AssumptionStatus = "corrected"
	AssumptionNeedsRevalidation AssumptionStatus = "needs_revalidation"
)

// Assumption is one inference we surfaced for user confirmation.
type Assumption struct {
	ID                string           `json:"id"`
	Field             FieldID          `json:"field"`
	Statement         string           `json:"statement"`
	Confidence        Confidence       `json:"confidence"`
	Impact            AssumptionImpact `json:"impact"`
	NeedsConfirmation bool             `json:"needs_confirmation"`
	Status            AssumptionStatus `json:"status"`
}
