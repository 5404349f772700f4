// Package handoff maintains the rolling context document that threads
// reasoning across intake states and into the assessment pipeline. Each
// single-field extraction only sees one message; the handoff briefing is what
// keeps the LLM calls from losing the story between them.
package handoff

import (
	"fmt"
	"strings"
	"time"

	"scopenerd/internal/types"
)

// Block is the record of one stage's contribution. Blocks are append-only
// and never mutated after being added.
type Block struct {
	Stage        string            `json:"stage"`
	Timestamp    time.Time         `json:"timestamp"`
	UserVerbatim string            `json:"user_verbatim"`
	Facts        map[string]string `json:"facts,omitempty"`
	Reasoning    string            `json:"reasoning,omitempty"`
	OpenQuestion []string          `json:"open_questions,omitempty"`
	Confidence   types.Confidence  `json:"confidence"`
}

// Handoff is the accumulating briefing document for one session.
type Handoff struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	// Narrative is the rolling prose summary, one stamped entry per block
	// that carried reasoning.
	Narrative string `json:"narrative,omitempty"`

	Blocks []Block  `json:"blocks,omitempty"`
	Themes []string `json:"themes,omitempty"`

	// GoldenThread is the user's first substantial description of their
	// goal, preserved verbatim for the rest of the session.
	GoldenThread string `json:"golden_thread,omitempty"`

	Constraints []string `json:"constraints,omitempty"`
	Tensions    []string `json:"tensions,omitempty"`
}

// New starts an empty handoff document for a session.
func New(sessionID string) *Handoff {
	return &Handoff{SessionID: sessionID, CreatedAt: time.Now().UTC()}
}

// goldenThreadMinLen filters out one-word openers like "hi".
const goldenThreadMinLen = 20

// Record appends one immutable block and folds its signal into the derived
// fields: the golden thread is captured from the first substantial
// intent-stage verbatim and never overwritten, constraint facts accumulate,
// and open questions phrased as conflicts become tensions.
func (h *Handoff) Record(stage, userText string, facts map[string]string, reasoning string, openQuestions []string, confidence types.Confidence) {
	b := Block{
		Stage:        stage,
		Timestamp:    time.Now().UTC(),
		UserVerbatim: userText,
		Facts:        facts,
		Reasoning:    reasoning,
		OpenQuestion: openQuestions,
		Confidence:   confidence,
	}
	h.Blocks = append(h.Blocks, b)

	if h.GoldenThread == "" && isIntentStage(stage) && len(strings.TrimSpace(userText)) > goldenThreadMinLen {
		h.GoldenThread = userText
	}

	if c := facts["constraints"]; c != "" {
		h.Constraints = append(h.Constraints, c)
	}
	for _, q := range openQuestions {
		lower := strings.ToLower(q)
		if strings.Contains(lower, "conflict") || strings.Contains(lower, "tension") {
			h.Tensions = append(h.Tensions, q)
		}
	}

	if reasoning != "" {
		h.appendNarrative(stage, reasoning)
	}
}

func isIntentStage(stage string) bool {
	return stage == "entry" || stage == "intent"
}

func (h *Handoff) appendNarrative(stage, content string) {
	entry := fmt.Sprintf("[%s @ %s] %s", stage, time.Now().UTC().Format("15:04"), content)
	if h.Narrative == "" {
		h.Narrative = entry
		return
	}
	h.Narrative += "\n\n" + entry
}

// AddTheme records an emerging theme once.
func (h *Handoff) AddTheme(theme string) {
	for _, t := range h.Themes {
		if t == theme {
			return
		}
	}
	h.Themes = append(h.Themes, theme)
}

// maxBriefingQuestions caps the open-question section of a briefing.
const maxBriefingQuestions = 5

// Briefing assembles the prior-context document handed to a downstream
// stage. The section order is fixed: golden thread, narrative, themes,
// constraints, open questions, tensions, then the last three blocks
// verbatim.
func (h *Handoff) Briefing(targetStage string) string {
	var sections []string

	if h.GoldenThread != "" {
		sections = append(sections, fmt.Sprintf("## The User's Core Intent\n\n%q", h.GoldenThread))
	}
	if h.Narrative != "" {
		sections = append(sections, "## Story So Far\n\n"+h.Narrative)
	}
	if len(h.Themes) > 0 {
		sections = append(sections, "## Emerging Themes\n\n"+bulleted(h.Themes))
	}
	if len(h.Constraints) > 0 {
		sections = append(sections, "## Constraints & Boundaries\n\n"+bulleted(h.Constraints))
	}

	var questions []string
	for _, b := range h.Blocks {
		questions = append(questions, b.OpenQuestion...)
	}
	if len(questions) > maxBriefingQuestions {
		questions = questions[:maxBriefingQuestions]
	}
	if len(questions) > 0 {
		sections = append(sections, "## Open Questions\n\n"+bulleted(questions))
	}

	if len(h.Tensions) > 0 {
		sections = append(sections, "## Unresolved Tensions\n\n"+bulleted(h.Tensions))
	}

	recent := h.Blocks
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if len(recent) > 0 {
		var parts []string
		for _, b := range recent {
			parts = append(parts, fmt.Sprintf("**%s** (%s confidence):\nUser said: %q\nWe understood: %s",
				b.Stage, b.Confidence, truncate(b.UserVerbatim, 150), truncate(b.Reasoning, 200)))
		}
		sections = append(sections, "## Recent Context\n\n"+strings.Join(parts, "\n\n"))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func bulleted(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// PipelineContext is the flat structure the assessment pipeline consumes
// when the conversation reaches the first run gate.
type PipelineContext struct {
	Industry         string   `json:"industry"`
	UseCase          string   `json:"use_case"`
	Jurisdiction     string   `json:"jurisdiction"`
	OrganizationSize string   `json:"organization_size"`
	Timeline         string   `json:"timeline"`
	Boundaries       string   `json:"boundaries"`
	Assumptions      []string `json:"assumptions,omitempty"`

	// GoldenThread and Briefing ride along so the pipeline's prompts keep
	// the user's voice and the accumulated reasoning.
	GoldenThread string `json:"golden_thread,omitempty"`
	Briefing     string `json:"briefing,omitempty"`
}

// BuildContext synthesizes the pipeline input from the packet, the
// highest-impact assumptions, and the accumulated briefing.
func BuildContext(p *types.IntakePacket, h *Handoff, assumptions []types.Assumption) PipelineContext {
	ctx := PipelineContext{
		Industry:         p.Industry.Value,
		UseCase:          p.UseCaseIntent.Value,
		Jurisdiction:     p.Jurisdiction.Value,
		OrganizationSize: p.OrganizationSize.Bucket,
		Timeline:         p.Timeline.Bucket,
		Boundaries:       p.Boundaries.Value,
	}
	for _, a := range assumptions {
		ctx.Assumptions = append(ctx.Assumptions, a.Statement)
	}
	if h != nil {
		ctx.GoldenThread = h.GoldenThread
		ctx.Briefing = h.Briefing("pipeline")
	}
	return ctx
}
