package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/advisorly/fincopy/internal/model"
)

// Constructor assembles generation prompts from budgeted sections. It holds
// only the immutable template set it was built with.
type Constructor struct {
	tmpl Templates
}

func NewConstructor(tmpl Templates) *Constructor {
	return &Constructor{tmpl: tmpl}
}

// SystemInstructions is the fixed, non-negotiable prompt prefix: role,
// task instructions, and the delimiter contract. The budget allocator
// reserves tokens for this before any other section competes.
func (c *Constructor) SystemInstructions(refinement bool) string {
	instructions := c.tmpl.CreationInstructions
	if refinement {
		instructions = c.tmpl.RefinementInstructions
	}
	return strings.Join([]string{c.tmpl.SystemRole, instructions, c.delimiterInstruction()}, "\n\n")
}

// delimiterInstruction is mandatory in every template. Downstream consumers
// split on the markers to separate the marketing artifact from
// conversational text.
func (c *Constructor) delimiterInstruction() string {
	return fmt.Sprintf(
		"Output the final marketing content wrapped exactly between the line %q and the line %q. "+
			"Anything outside those markers is treated as commentary and discarded.",
		c.tmpl.DelimiterStart, c.tmpl.DelimiterEnd)
}

var sectionHeadings = map[string]string{
	model.SectionComplianceSources:   "COMPLIANCE AND REFERENCE CONTEXT:",
	model.SectionConversationHistory: "CONVERSATION SO FAR:",
	model.SectionDocumentContext:     "ATTACHED DOCUMENT NOTES:",
}

// SectionHeading returns the header line Build emits above a section, so the
// budget layer can count it against the section's allocation.
func SectionHeading(section string) string {
	return sectionHeadings[section]
}

// Build assembles the full prompt. Section values must already be compressed
// to their allocations; Build only concatenates.
func (c *Constructor) Build(req model.GenerationRequest, sections map[string]string) string {
	var b strings.Builder
	b.WriteString(c.SystemInstructions(req.RefinementMode()))

	if sources := sections[model.SectionComplianceSources]; sources != "" {
		b.WriteString("\n\n" + sectionHeadings[model.SectionComplianceSources] + "\n")
		b.WriteString(sources)
	}
	if history := sections[model.SectionConversationHistory]; history != "" {
		b.WriteString("\n\n" + sectionHeadings[model.SectionConversationHistory] + "\n")
		b.WriteString(history)
	}
	if docs := sections[model.SectionDocumentContext]; docs != "" {
		b.WriteString("\n\n" + sectionHeadings[model.SectionDocumentContext] + "\n")
		b.WriteString(docs)
	}
	if req.RefinementMode() && req.CurrentContent != "" {
		b.WriteString("\n\nCURRENT DRAFT:\n")
		b.WriteString(req.CurrentContent)
	}

	b.WriteString("\n\nREQUEST:\n")
	b.WriteString(req.UserRequest)
	if req.ContentType != "" {
		b.WriteString("\nContent type: ")
		b.WriteString(req.ContentType)
	}
	if req.AudienceType != "" {
		b.WriteString("\nAudience: ")
		b.WriteString(req.AudienceType)
	}
	return b.String()
}

// LegacyPrompt is the minimal fixed prompt: baseline disclaimers plus the
// request, nothing else. Used when full context assembly keeps failing.
func (c *Constructor) LegacyPrompt(req model.GenerationRequest, disclaimers []model.ContextItem) string {
	sections := map[string]string{
		model.SectionComplianceSources: strings.Join(RenderSources(disclaimers), "\n\n"),
	}
	return c.Build(req, sections)
}

// EmergencyPrompt depends on nothing but the template set and the request
// text itself, so it is always constructible.
func (c *Constructor) EmergencyPrompt(req model.GenerationRequest) string {
	return strings.Join([]string{
		c.tmpl.SystemRole,
		"Write conservative, broadly compliant marketing content for the request below. " +
			"Include a risk disclosure and a past-performance disclaimer.",
		c.delimiterInstruction(),
		"REQUEST:\n" + req.UserRequest,
	}, "\n\n")
}

// ExtractContent pulls the delimiter-wrapped artifact out of a model
// response. Falls back to the whole response when the model ignored the
// markers; honoring them is instructed, not guaranteed.
func (c *Constructor) ExtractContent(response string) string {
	start := strings.Index(response, c.tmpl.DelimiterStart)
	if start < 0 {
		return strings.TrimSpace(response)
	}
	rest := response[start+len(c.tmpl.DelimiterStart):]
	end := strings.Index(rest, c.tmpl.DelimiterEnd)
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// RenderSources renders retrieval items as prompt blocks: compliance rules
// first (they must survive truncation), each group ordered by similarity.
func RenderSources(items []model.ContextItem) []string {
	var rules, examples []model.ContextItem
	for _, item := range items {
		if item.Corpus == model.CorpusComplianceRule {
			rules = append(rules, item)
		} else {
			examples = append(examples, item)
		}
	}
	bySimilarity := func(group []model.ContextItem) {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].SimilarityOrZero() > group[j].SimilarityOrZero()
		})
	}
	bySimilarity(rules)
	bySimilarity(examples)

	var blocks []string
	for i, rule := range rules {
		blocks = append(blocks, fmt.Sprintf("[Compliance requirement %d]\n%s", i+1, rule.Text))
	}
	for i, example := range examples {
		blocks = append(blocks, fmt.Sprintf("[Approved example %d]\n%s", i+1, example.Text))
	}
	return blocks
}

// RenderHistory renders conversation turns oldest first, one block per turn.
func RenderHistory(messages []model.Message) []string {
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return blocks
}

// RenderDocuments renders session document summaries in attachment order.
func RenderDocuments(docs []model.SessionDocument) []string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := doc.Name
		if name == "" {
			name = doc.ID
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", name, doc.Summary))
	}
	return blocks
}
