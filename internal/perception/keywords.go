package perception

import (
	"regexp"
	"strconv"
	"strings"

	"scopenerd/internal/types"
)

// Deterministic keyword fallbacks. These run when the LLM path fails or no
// credential is configured, and the industry table additionally overrides a
// disagreeing LLM result (see Extractor.extractIndustry).

// industryEntry keeps the table ordered: more specific vocabularies are
// checked before generic ones, so "banquet hall software" reads as
// hospitality, not technology.
type industryEntry struct {
	name     string
	keywords []string
}

var industryTable = []industryEntry{
	{"hospitality", []string{
		"banquet", "banquets", "catering", "hotel", "hotels", "restaurant",
		"event", "events", "wedding", "venue", "venues", "food service",
		"hospitality", "reception", "ballroom", "dining",
	}},
	{"healthcare", []string{
		"medical", "hospital", "clinic", "patient", "health", "doctor",
		"nurse", "healthcare", "clinical", "pharma", "pharmaceutical",
	}},
	{"retail", []string{
		"store", "stores", "shop", "retail", "merchandise", "ecommerce",
		"shopping", "inventory", "pos", "point of sale",
	}},
	{"finance", []string{
		"bank", "banking", "financial", "investment", "trading", "loan",
		"insurance", "fintech", "accounting", "payment",
	}},
	{"manufacturing", []string{
		"factory", "production", "assembly", "manufacturing",
		"supply chain", "warehouse", "industrial",
	}},
	{"technology", []string{
		"software", "app", "platform", "saas", "tech", "developer",
		"code", "api", "cloud", "data center",
	}},
	{"education", []string{
		"school", "university", "student", "teacher", "learning",
		"education", "training", "course", "academic",
	}},
	{"real_estate", []string{
		"property", "real estate", "rental", "landlord", "tenant",
		"building", "apartment", "housing",
	}},
	{"logistics", []string{
		"shipping", "delivery", "freight", "logistics",
		"transport", "fleet", "courier",
	}},
	{"government", []string{
		"government", "municipal", "federal", "public sector", "agency",
		"city council", "civic",
	}},
	{"energy", []string{
		"energy", "utility", "utilities", "power grid", "oil", "gas",
		"solar", "wind farm", "electricity",
	}},
}

// DetectIndustry scans text for industry vocabulary. First table hit wins.
func DetectIndustry(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range industryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.name
			}
		}
	}
	return ""
}

var industryAliases = map[string]string{
	"hospitality":   "hospitality",
	"hotels":        "hospitality",
	"restaurants":   "hospitality",
	"events":        "hospitality",
	"food":          "hospitality",
	"catering":      "hospitality",
	"healthcare":    "healthcare",
	"medical":       "healthcare",
	"health":        "healthcare",
	"retail":        "retail",
	"ecommerce":     "retail",
	"finance":       "finance",
	"banking":       "finance",
	"financial":     "finance",
	"manufacturing": "manufacturing",
	"industrial":    "manufacturing",
	"technology":    "technology",
	"tech":          "technology",
	"software":      "technology",
	"education":     "education",
	"real estate":   "real_estate",
	"property":      "real_estate",
	"logistics":     "logistics",
	"transportation": "logistics",
	"government":    "government",
	"energy":        "energy",
}

// NormalizeIndustry maps common variants onto the canonical industry names.
// Unrecognized values pass through lowercased.
func NormalizeIndustry(industry string) string {
	lower := strings.ToLower(strings.TrimSpace(industry))
	if lower == "" {
		return ""
	}
	if canonical, ok := industryAliases[lower]; ok {
		return canonical
	}
	for alias, canonical := range industryAliases {
		if strings.Contains(lower, alias) {
			return canonical
		}
	}
	return lower
}

// regulatedIndustries default to high risk posture and trigger the
// integration/risk question branch.
var regulatedIndustries = map[string]bool{
	"healthcare": true,
	"finance":    true,
	"government": true,
	"energy":     true,
}

// IsRegulatedIndustry reports whether the industry defaults to high risk.
func IsRegulatedIndustry(industry string) bool {
	return regulatedIndustries[NormalizeIndustry(industry)]
}

// InferRiskFromIndustry derives a default risk posture from the industry.
func InferRiskFromIndustry(industry string) types.RiskLevel {
	if IsRegulatedIndustry(industry) {
		return types.RiskHigh
	}
	switch NormalizeIndustry(industry) {
	case "hospitality", "retail", "manufacturing", "logistics", "education":
		return types.RiskMedium
	}
	return types.RiskLow
}

// DetectOpportunity classifies the primary goal from goal vocabulary.
func DetectOpportunity(text string) types.OpportunityShape {
	lower := strings.ToLower(text)
	if containsAny(lower, "revenue", "sales", "money", "profit", "income", "grow", "growth") {
		return types.OpportunityRevenue
	}
	if containsAny(lower, "cost", "save", "efficient", "time", "reduce", "automate", "faster") {
		return types.OpportunityCost
	}
	if containsAny(lower, "risk", "compliance", "safety", "security", "audit", "regulation") {
		return types.OpportunityRisk
	}
	if containsAny(lower, "transform", "change", "innovate", "disrupt", "new way", "reimagine") {
		return types.OpportunityTransform
	}
	return ""
}

var usRegions = []string{
	"midwest", "northeast", "southeast", "southwest", "west coast", "east coast",
	"california", "texas", "new york", "florida",
}

type locationEntry struct {
	name     string
	keywords []string
}

var locationTable = []locationEntry{
	{"US", []string{"usa", "united states", "america", "american"}},
	{"UK", []string{"united kingdom", "britain", "british", "england"}},
	{"EU", []string{"europe", "european", "germany", "france", "spain", "italy"}},
	{"Canada", []string{"canada", "canadian"}},
	{"Australia", []string{"australia", "australian"}},
	{"Global", []string{"global", "worldwide", "international", "multiple countries"}},
	{"Asia", []string{"asia", "asian", "china", "japan", "singapore", "india"}},
}

// DetectLocation finds a jurisdiction in free text. US regions are reported
// with the region attached since state-level rules can differ.
func DetectLocation(text string) string {
	lower := strings.ToLower(text)
	for _, region := range usRegions {
		if strings.Contains(lower, region) {
			return "US - " + titleWords(region)
		}
	}
	for _, entry := range locationTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.name
			}
		}
	}
	// Bare "us"/"uk"/"eu" only match as standalone words.
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		switch tok {
		case "us", "usa":
			return "US"
		case "uk":
			return "UK"
		case "eu":
			return "EU"
		}
	}
	return ""
}

var numberRe = regexp.MustCompile(`\d+`)

// DetectOrgSize buckets organization scale from verbal cues or a head count.
func DetectOrgSize(text string) types.OrgSizeBucket {
	lower := strings.ToLower(text)

	if containsAny(lower, "fortune 500", "global company", "multinational") {
		return types.OrgEnterprise
	}
	if containsAny(lower, "startup", "small team", "just me", "few people", "under 50") {
		return types.OrgSmall
	}
	if containsAny(lower, "smb", "mid-size", "medium", "few hundred") {
		return types.OrgMedium
	}
	if containsAny(lower, "thousands", "multiple locations", "enterprise", "large") {
		return types.OrgLarge
	}

	for _, numStr := range numberRe.FindAllString(text, -1) {
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		switch {
		case num < 50:
			return types.OrgSmall
		case num < 500:
			return types.OrgMedium
		case num < 5000:
			return types.OrgLarge
		default:
			return types.OrgEnterprise
		}
	}
	return ""
}

var durationRe = regexp.MustCompile(`(\d+)\s*(week|month|quarter|year)s?`)

// DetectTimeline buckets free-form timeframe language: urgent (within a
// month), near-term (within six months), exploratory (further out or no
// concrete date). "N weeks/months/quarters/years" is parsed numerically.
func DetectTimeline(text string) types.TimelineBucket {
	lower := strings.ToLower(text)

	if containsAny(lower, "urgent", "asap", "immediately", "this week", "next week", "critical", "emergency") {
		return types.TimelineUrgent
	}

	if m := durationRe.FindStringSubmatch(lower); m != nil {
		num, _ := strconv.Atoi(m[1])
		var months float64
		switch m[2] {
		case "week":
			months = float64(num) * 0.25
		case "month":
			months = float64(num)
		case "quarter":
			months = float64(num) * 3
		case "year":
			months = float64(num) * 12
		}
		switch {
		case months <= 1:
			return types.TimelineUrgent
		case months <= 6:
			return types.TimelineNearTerm
		default:
			return types.TimelineExploratory
		}
	}

	if strings.Contains(lower, "this month") {
		return types.TimelineUrgent
	}
	if strings.Contains(lower, "this quarter") || strings.Contains(lower, "next quarter") {
		return types.TimelineNearTerm
	}
	if strings.Contains(lower, "this year") || strings.Contains(lower, "next year") {
		return types.TimelineExploratory
	}

	if containsAny(lower, "soon", "pilot", "few months", "near-term", "q1", "q2", "q3", "q4") {
		return types.TimelineNearTerm
	}
	if containsAny(lower, "exploring", "research", "looking into", "considering", "early stage", "no rush", "eventually") {
		return types.TimelineExploratory
	}
	return ""
}

var systemKeywords = []string{
	"crm", "erp", "sap", "salesforce", "oracle", "database", "api",
	"spreadsheet", "excel", "quickbooks", "pos", "scheduling",
	"calendar", "email", "slack", "teams", "sharepoint", "workday",
	"netsuite", "hubspot", "zendesk", "jira", "epic", "cerner", "plc",
}

var acronymSystems = map[string]bool{
	"crm": true, "erp": true, "sap": true, "api": true, "plc": true, "pos": true,
}

// DetectSystems finds named existing systems in free text.
func DetectSystems(text string) []string {
	lower := strings.ToLower(text)
	var systems []string
	seen := make(map[string]bool)
	for _, kw := range systemKeywords {
		if !strings.Contains(lower, kw) || seen[kw] {
			continue
		}
		seen[kw] = true
		if acronymSystems[kw] {
			systems = append(systems, strings.ToUpper(kw))
		} else {
			systems = append(systems, titleWords(kw))
		}
	}
	return systems
}

func containsAny(lower string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
