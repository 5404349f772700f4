package perception

import (
	"context"
	"fmt"
	"strings"

	"scopenerd/internal/logging"
	"scopenerd/internal/types"
)

// Extractor runs per-field structured extraction: one focused prompt per
// field, an LLM attempt first, deterministic keywords when the call or the
// parse fails. Extraction never returns an error to the caller; an
// unrecoverable miss yields a zero-value field so the state machine can
// always proceed.
type Extractor struct {
	client LLMClient
}

// NewExtractor creates an extractor. A nil client is allowed and forces the
// keyword path for every field.
func NewExtractor(client LLMClient) *Extractor {
	return &Extractor{client: client}
}

const extractorSystem = "You are a precise information extractor. Respond with valid JSON only."

// call runs one prompt through the client and parses the response.
// Returns nil when the client is missing, the call fails, or nothing
// parseable comes back.
func (e *Extractor) call(ctx context.Context, prompt string) Structured {
	if e.client == nil {
		return nil
	}
	raw, err := e.client.CompleteWithSystem(ctx, extractorSystem, prompt)
	if err != nil {
		logging.ExtractionWarn("llm call failed, using keyword fallback: %v", err)
		return nil
	}
	obj, err := ParseStructured(raw)
	if err != nil {
		logging.ExtractionWarn("unparseable response, using keyword fallback: %v", err)
		return nil
	}
	return obj
}

// IntentResult is the extraction for the intent state: the synthesized use
// case plus the industry, which ride in the same message most of the time.
type IntentResult struct {
	UseCaseIntent types.JudgmentField
	Industry      types.JudgmentField
	NeedsMoreInfo bool
}

// ExtractIntent pulls the use-case summary and industry from the opening
// description. The industry value is cross-checked against the keyword
// table; on disagreement the keyword result wins.
func (e *Extractor) ExtractIntent(ctx context.Context, userMessage, priorContext string) IntentResult {
	prompt := fmt.Sprintf(`Extract information from this user message about their AI agent project.

USER MESSAGE: %s

%s

Return ONLY a JSON object with these fields:
- "summary": A 1-2 sentence summary of what they want (string)
- "industry": The industry/sector mentioned (string or null). Examples: hospitality, healthcare, retail, finance, manufacturing, technology, education, logistics
- "needs_more_info": true if the message is too vague to understand, false otherwise
- "reasoning": 2-3 sentences explaining WHY you interpreted it this way

JSON response:`, userMessage, priorContext)

	obj := e.call(ctx, prompt)

	var res IntentResult
	if obj == nil {
		// Keyword path: the raw message is the intent at low confidence.
		res.UseCaseIntent = types.JudgmentField{
			Value:      userMessage,
			Confidence: types.ConfidenceLow,
			Source:     types.SourceAsked,
		}
		if industry := DetectIndustry(userMessage); industry != "" {
			res.Industry = types.JudgmentField{
				Value:      industry,
				Confidence: types.ConfidenceMed,
				Source:     types.SourceKeywordMatch,
			}
		}
		return res
	}

	res.NeedsMoreInfo = obj.Bool("needs_more_info")
	if summary := obj.String("summary"); summary != "" {
		res.UseCaseIntent = types.JudgmentField{
			Value:      summary,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceLLMExtracted,
			Reasoning:  obj.String("reasoning"),
		}
	}
	res.Industry = e.extractIndustry(obj.String("industry"), userMessage)
	return res
}

// extractIndustry applies the keyword-over-LLM precedence rule. The keyword
// table is more reliable on explicit lexical cues ("banquet halls"), so a
// disagreeing keyword hit overrides the model. The override is deliberate
// and always logged.
func (e *Extractor) extractIndustry(llmValue, userMessage string) types.JudgmentField {
	llmIndustry := NormalizeIndustry(llmValue)
	keywordIndustry := DetectIndustry(userMessage)

	switch {
	case keywordIndustry != "" && llmIndustry != "" && keywordIndustry != llmIndustry:
		logging.Extraction("industry override: llm=%q keywords=%q, keeping keyword match", llmIndustry, keywordIndustry)
		return types.JudgmentField{
			Value:      keywordIndustry,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceKeywordMatch,
			Reasoning:  fmt.Sprintf("explicit industry vocabulary in message overrides model tag %q", llmIndustry),
		}
	case llmIndustry != "":
		return types.JudgmentField{
			Value:      llmIndustry,
			Confidence: types.ConfidenceHigh,
			Source:     types.SourceLLMExtracted,
		}
	case keywordIndustry != "":
		return types.JudgmentField{
			Value:      keywordIndustry,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.JudgmentField{}
}

// ExtractOpportunity classifies the primary goal as one of
// revenue/cost/risk/transform.
func (e *Extractor) ExtractOpportunity(ctx context.Context, userMessage, useCaseSummary string) types.JudgmentField {
	prompt := fmt.Sprintf(`The user wants to: %s

Their latest message: %s

What is their PRIMARY goal? Pick ONE:
- "revenue" = make money, increase sales, grow business
- "cost" = save money, reduce time, improve efficiency
- "risk" = reduce risk, compliance, prevent problems
- "transform" = fundamentally change operations

Return ONLY a JSON object:
{"goal": "<one of the four options>", "reasoning": "<2-3 sentences on why this goal fits>"}

JSON response:`, useCaseSummary, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if goal := validOpportunity(obj.String("goal")); goal != "" {
			return types.JudgmentField{
				Value:      string(goal),
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if goal := DetectOpportunity(userMessage); goal != "" {
		return types.JudgmentField{
			Value:      string(goal),
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.JudgmentField{}
}

func validOpportunity(s string) types.OpportunityShape {
	switch types.OpportunityShape(strings.ToLower(strings.TrimSpace(s))) {
	case types.OpportunityRevenue:
		return types.OpportunityRevenue
	case types.OpportunityCost:
		return types.OpportunityCost
	case types.OpportunityRisk:
		return types.OpportunityRisk
	case types.OpportunityTransform:
		return types.OpportunityTransform
	}
	return ""
}

// ExtractLocation pulls the operating jurisdiction.
func (e *Extractor) ExtractLocation(ctx context.Context, userMessage string) types.JudgmentField {
	prompt := fmt.Sprintf(`From the user's message, extract where their project operates.

USER MESSAGE: %s

Return ONLY a JSON object:
{"location": "<country, region, or global>", "reasoning": "<brief note on regulatory implications>"}

If they mention multiple locations, pick the primary one or say "multi-region".

JSON response:`, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if loc := obj.String("location"); loc != "" && !strings.EqualFold(loc, "null") {
			return types.JudgmentField{
				Value:      loc,
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if loc := DetectLocation(userMessage); loc != "" {
		return types.JudgmentField{
			Value:      loc,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.JudgmentField{}
}

// ExtractOrgSize buckets the organization scale.
func (e *Extractor) ExtractOrgSize(ctx context.Context, userMessage string) types.BucketField {
	prompt := fmt.Sprintf(`From the user's message, extract their organization size.

USER MESSAGE: %s

Return ONLY a JSON object:
{"org_size": "<small/medium/large/enterprise>", "reasoning": "<brief note>"}

Guidelines:
- small = under 50 employees or startup
- medium = 50-500 employees or SMB
- large = 500-5000 employees
- enterprise = 5000+ employees or Fortune 500

JSON response:`, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if size := validOrgSize(obj.String("org_size")); size != "" {
			return types.BucketField{
				Bucket:     string(size),
				Raw:        userMessage,
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if size := DetectOrgSize(userMessage); size != "" {
		return types.BucketField{
			Bucket:     string(size),
			Raw:        userMessage,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.BucketField{}
}

func validOrgSize(s string) types.OrgSizeBucket {
	switch types.OrgSizeBucket(strings.ToLower(strings.TrimSpace(s))) {
	case types.OrgSmall:
		return types.OrgSmall
	case types.OrgMedium:
		return types.OrgMedium
	case types.OrgLarge:
		return types.OrgLarge
	case types.OrgEnterprise:
		return types.OrgEnterprise
	}
	return ""
}

// ExtractTimeline buckets the urgency and keeps the raw phrase.
func (e *Extractor) ExtractTimeline(ctx context.Context, userMessage string) types.BucketField {
	prompt := fmt.Sprintf(`From the user's message, extract their timeline/urgency.

USER MESSAGE: %s

Return ONLY a JSON object:
{"timeline": "<urgent/near-term/exploratory>", "raw_timeframe": "<what they actually said>", "reasoning": "<brief note>"}

Guidelines for categorization:
- "urgent" = need this within 1 month (weeks, ASAP, this month, critical)
- "near-term" = want to pilot in the next 1-6 months (1-2 quarters, next quarter, few months, soon)
- "exploratory" = 6+ months out or no concrete timeline (this year, next year, eventually, researching)

Time expression hints:
- "2 quarters" = 6 months = near-term
- "next year" = 12+ months = exploratory
- "this month" or "next month" = urgent

JSON response:`, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if bucket := validTimeline(obj.String("timeline")); bucket != "" {
			raw := obj.String("raw_timeframe")
			if raw == "" {
				raw = userMessage
			}
			return types.BucketField{
				Bucket:     string(bucket),
				Raw:        raw,
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if bucket := DetectTimeline(userMessage); bucket != "" {
		return types.BucketField{
			Bucket:     string(bucket),
			Raw:        userMessage,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.BucketField{}
}

func validTimeline(s string) types.TimelineBucket {
	switch types.TimelineBucket(strings.ToLower(strings.TrimSpace(s))) {
	case types.TimelineUrgent:
		return types.TimelineUrgent
	case types.TimelineNearTerm:
		return types.TimelineNearTerm
	case types.TimelineExploratory:
		return types.TimelineExploratory
	}
	return ""
}

// ExtractStakeholders captures who uses the system and who signs off.
// There is no useful keyword table for this; when the LLM path fails the raw
// answer is kept at low confidence.
func (e *Extractor) ExtractStakeholders(ctx context.Context, userMessage string) types.JudgmentField {
	prompt := fmt.Sprintf(`From the user's message, extract who would use this system and who needs to approve it.

USER MESSAGE: %s

Return ONLY a JSON object:
{"users": "<who would use this day-to-day>", "approvers": "<who needs to sign off>", "reasoning": "<brief note on org dynamics>"}

Use null for fields not mentioned.

JSON response:`, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		users := obj.String("users")
		approvers := obj.String("approvers")
		var parts []string
		if users != "" && !strings.EqualFold(users, "null") {
			parts = append(parts, "users: "+users)
		}
		if approvers != "" && !strings.EqualFold(approvers, "null") {
			parts = append(parts, "approvers: "+approvers)
		}
		if len(parts) > 0 {
			return types.JudgmentField{
				Value:      strings.Join(parts, "; "),
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if strings.TrimSpace(userMessage) != "" {
		return types.JudgmentField{
			Value:      userMessage,
			Confidence: types.ConfidenceLow,
			Source:     types.SourceAsked,
		}
	}
	return types.JudgmentField{}
}

// ExtractIntegration finds the existing systems the agent would touch.
func (e *Extractor) ExtractIntegration(ctx context.Context, userMessage string) types.IntegrationField {
	prompt := fmt.Sprintf(`From the user's message, list the existing systems/tools the AI agent would need to connect to.

USER MESSAGE: %s

Return ONLY a JSON object:
{"systems": ["<system name>", ...], "summary": "<one-line integration picture>"}

Return an empty list if no systems are mentioned.

JSON response:`, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if systems := obj.Strings("systems"); len(systems) > 0 {
			return types.IntegrationField{
				Systems:    systems,
				Summary:    obj.String("summary"),
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
			}
		}
	}
	if systems := DetectSystems(userMessage); len(systems) > 0 {
		return types.IntegrationField{
			Systems:    systems,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceKeywordMatch,
		}
	}
	return types.IntegrationField{}
}

// ExtractRisk assesses failure impact for the use case. The industry feeds
// both the prompt and the fallback inference.
func (e *Extractor) ExtractRisk(ctx context.Context, userMessage, useCaseSummary, industry string) types.RiskField {
	prompt := fmt.Sprintf(`Project: %s
Industry: %s

Assess the risk level based on what the user says happens when things go wrong.

USER MESSAGE: %s

Consider:
- Patient safety (healthcare) = high risk
- Financial loss (finance) = high risk
- Reputation damage = medium risk
- Minor inconvenience = low risk

Return ONLY a JSON object:
{"risk_level": "low" or "medium" or "high", "worst_case": "<their worst-case in one line>", "reasoning": "<2-3 sentences on the failure modes>"}

JSON response:`, useCaseSummary, industry, userMessage)

	if obj := e.call(ctx, prompt); obj != nil {
		if level := validRisk(obj.String("risk_level")); level != "" {
			return types.RiskField{
				Level:      level,
				WorstCase:  obj.String("worst_case"),
				Confidence: types.ConfidenceHigh,
				Source:     types.SourceLLMExtracted,
				Reasoning:  obj.String("reasoning"),
			}
		}
	}
	if industry != "" {
		return types.RiskField{
			Level:      InferRiskFromIndustry(industry),
			WorstCase:  userMessage,
			Confidence: types.ConfidenceMed,
			Source:     types.SourceInferred,
			Reasoning:  fmt.Sprintf("defaulted from industry %q", NormalizeIndustry(industry)),
		}
	}
	return types.RiskField{}
}

func validRisk(s string) types.RiskLevel {
	switch types.RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case types.RiskLow:
		return types.RiskLow
	case types.RiskMedium:
		return types.RiskMedium
	case types.RiskHigh:
		return types.RiskHigh
	}
	return ""
}
