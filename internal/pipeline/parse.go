package pipeline

import (
	"regexp"
	"strings"
)

// Markdown-shape parsing for stage outputs. The models are prompted for
// structured markdown but do not always comply, so every extractor degrades
// to a sensible default instead of failing the stage.

var headerRe = regexp.MustCompile(`(?m)^#{1,4}\s*(?:\d+\.?\s*)?(.+?)\s*$`)

// extractSection returns the body under the first header matching any of
// the given names (case-insensitive substring match on the header line).
func extractSection(content string, names ...string) string {
	locs := headerRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		header := strings.ToLower(content[loc[2]:loc[3]])
		for _, name := range names {
			if !strings.Contains(header, strings.ToLower(name)) {
				continue
			}
			start := loc[1]
			end := len(content)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if body := strings.TrimSpace(content[start:end]); len(body) > 20 {
				return body
			}
		}
	}
	return ""
}

var bulletRe = regexp.MustCompile(`(?m)^\s*[-*•]\s+(.+?)\s*$`)

// extractBullets returns the bullet items under the first matching header
// or bold label.
func extractBullets(content string, names ...string) []string {
	section := extractSection(content, names...)
	if section == "" {
		// Bold label form: **Key Risk Factors:** followed by bullets.
		for _, name := range names {
			re := regexp.MustCompile(`(?is)\*\*[^*\n]*` + regexp.QuoteMeta(name) + `[^*\n]*\*\*:?\s*\n((?:\s*[-*•]\s+[^\n]+\n?)+)`)
			if m := re.FindStringSubmatch(content); m != nil {
				section = m[1]
				break
			}
		}
	}
	if section == "" {
		return nil
	}
	var items []string
	for _, m := range bulletRe.FindAllStringSubmatch(section, -1) {
		item := strings.TrimSpace(m[1])
		// A bold label bullet starts the next list.
		if strings.HasPrefix(item, "**") {
			break
		}
		items = append(items, item)
	}
	return items
}

// Verdict values for the stage-0 recommendation.
const (
	VerdictGo      = "go"
	VerdictCaution = "caution"
	VerdictNoGo    = "no-go"
)

var verdictLabelRe = regexp.MustCompile(`(?i)go/no-go[^:\n]*:\s*\**\s*(no-go|caution|go)\b`)

// extractVerdict pulls the go/caution/no-go call, preferring the explicit
// labeled line. In the fallback scan, no-go and caution are checked first so
// "proceed with caution" never reads as a plain go; the label text itself is
// stripped so it cannot read as no-go. Anything unrecognizable defaults to
// caution.
func extractVerdict(content string) string {
	if m := verdictLabelRe.FindStringSubmatch(content); m != nil {
		return strings.ToLower(m[1])
	}
	lower := strings.ReplaceAll(strings.ToLower(content), "go/no-go", "")
	switch {
	case strings.Contains(lower, "no-go") || strings.Contains(lower, "not recommended"):
		return VerdictNoGo
	case strings.Contains(lower, "caution"):
		return VerdictCaution
	case regexp.MustCompile(`\bgo\b`).MatchString(lower) || strings.Contains(lower, "recommended"):
		return VerdictGo
	}
	return VerdictCaution
}

var agentTypeRe = regexp.MustCompile(`\b(T[0-4])\b`)

// extractAgentType finds an explicit T0-T4 mention, falls back to keyword
// inference, and defaults to T2.
func extractAgentType(content string) string {
	if m := agentTypeRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "multi-agent") || strings.Contains(lower, "mags") || strings.Contains(lower, "distributed"):
		return "T4"
	case strings.Contains(lower, "cognitive") || strings.Contains(lower, "autonomous") || strings.Contains(lower, "learning"):
		return "T3"
	case strings.Contains(lower, "workflow") || strings.Contains(lower, "procedural") || strings.Contains(lower, "tool"):
		return "T2"
	case strings.Contains(lower, "conversational") || strings.Contains(lower, "chatbot"):
		return "T1"
	case strings.Contains(lower, "rule-based") || strings.Contains(lower, "static"):
		return "T0"
	}
	return "T2"
}

// extractConfidence reads the stated confidence level, defaulting to medium.
func extractConfidence(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "high confidence") || strings.Contains(lower, "strongly recommend"):
		return "high"
	case strings.Contains(lower, "low confidence") || strings.Contains(lower, "limited information"):
		return "low"
	}
	return "medium"
}

// areaConfidence grades a research area by how much the model actually said.
func areaConfidence(findings string) string {
	switch {
	case len(findings) > 500:
		return "high"
	case len(findings) > 100:
		return "medium"
	}
	return "low"
}
