package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/advisorly/fincopy/internal/model"
)

func TestSystemInstructionsAlwaysCarryDelimiterContract(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	for _, refinement := range []bool{false, true} {
		sys := c.SystemInstructions(refinement)
		require.Contains(t, sys, DefaultTemplates().DelimiterStart)
		require.Contains(t, sys, DefaultTemplates().DelimiterEnd)
	}
}

func TestSystemInstructionsModeSelection(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	creation := c.SystemInstructions(false)
	refinement := c.SystemInstructions(true)
	require.NotEqual(t, creation, refinement)
	require.Contains(t, creation, DefaultTemplates().CreationInstructions)
	require.Contains(t, refinement, DefaultTemplates().RefinementInstructions)
}

func TestBuildRefinementEmbedsDraftVerbatim(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	draft := "Our fund returned 12% last year.\nInvest today!"
	req := model.GenerationRequest{
		UserRequest:    "make the tone more conservative",
		CurrentContent: draft,
	}
	prompt := c.Build(req, nil)
	require.Contains(t, prompt, "CURRENT DRAFT:\n"+draft)
	require.Contains(t, prompt, DefaultTemplates().RefinementInstructions)
}

func TestBuildCreationOmitsDraftSection(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	prompt := c.Build(model.GenerationRequest{UserRequest: "write an ira email"}, nil)
	require.NotContains(t, prompt, "CURRENT DRAFT:")
	require.Contains(t, prompt, "REQUEST:\nwrite an ira email")
}

func TestBuildSectionOrder(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	prompt := c.Build(model.GenerationRequest{
		UserRequest:  "write a retirement brochure",
		ContentType:  "brochure",
		AudienceType: "retail",
	}, map[string]string{
		model.SectionComplianceSources:   "[Compliance requirement 1]\nDisclose risk.",
		model.SectionConversationHistory: "user: shorter please",
		model.SectionDocumentContext:     "[fund-fact-sheet]\nExpense ratio 0.4%",
	})
	sources := strings.Index(prompt, "COMPLIANCE AND REFERENCE CONTEXT:")
	history := strings.Index(prompt, "CONVERSATION SO FAR:")
	docs := strings.Index(prompt, "ATTACHED DOCUMENT NOTES:")
	request := strings.Index(prompt, "REQUEST:")
	require.True(t, sources >= 0 && sources < history)
	require.True(t, history < docs)
	require.True(t, docs < request)
	require.Contains(t, prompt, "Content type: brochure")
	require.Contains(t, prompt, "Audience: retail")
}

func TestEmergencyPromptSelfContained(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	prompt := c.EmergencyPrompt(model.GenerationRequest{UserRequest: "announce our new etf"})
	require.Contains(t, prompt, "announce our new etf")
	require.Contains(t, prompt, DefaultTemplates().DelimiterStart)
	require.Contains(t, prompt, "risk disclosure")
}

func TestExtractContentWithDelimiters(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	tmpl := DefaultTemplates()
	response := "Sure, here is the copy:\n" + tmpl.DelimiterStart +
		"\nInvesting involves risk.\n" + tmpl.DelimiterEnd + "\nLet me know what to change."
	require.Equal(t, "Investing involves risk.", c.ExtractContent(response))
}

func TestExtractContentMissingEndMarker(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	response := DefaultTemplates().DelimiterStart + "\nInvesting involves risk."
	require.Equal(t, "Investing involves risk.", c.ExtractContent(response))
}

func TestExtractContentNoMarkers(t *testing.T) {
	c := NewConstructor(DefaultTemplates())
	require.Equal(t, "Investing involves risk.", c.ExtractContent("  Investing involves risk.\n"))
}

func TestRenderSourcesComplianceFirst(t *testing.T) {
	low, high := 0.2, 0.9
	items := []model.ContextItem{
		{ID: "m1", Corpus: model.CorpusMarketingExample, Text: "example copy", Similarity: &high},
		{ID: "c1", Corpus: model.CorpusComplianceRule, Text: "disclose fees", Similarity: &low},
		{ID: "c2", Corpus: model.CorpusComplianceRule, Text: "no guarantees", Similarity: &high},
	}
	blocks := RenderSources(items)
	require.Len(t, blocks, 3)
	require.Contains(t, blocks[0], "[Compliance requirement 1]")
	require.Contains(t, blocks[0], "no guarantees")
	require.Contains(t, blocks[1], "disclose fees")
	require.Contains(t, blocks[2], "[Approved example 1]")
}

func TestRenderHistoryOrder(t *testing.T) {
	blocks := RenderHistory([]model.Message{
		{Role: model.RoleUser, Content: "draft an email"},
		{Role: model.RoleAssistant, Content: "here you go"},
	})
	require.Equal(t, []string{"user: draft an email", "assistant: here you go"}, blocks)
}
