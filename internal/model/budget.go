package model

// Prompt section names the budget allocator knows about.
const (
	SectionSystemInstructions  = "system_instructions"
	SectionComplianceSources   = "compliance_sources"
	SectionConversationHistory = "conversation_history"
	SectionDocumentContext     = "document_context"
)

// ContextBudget is the token allocation for one generation request.
// The sum of allocations never exceeds TotalTokens.
type ContextBudget struct {
	TotalTokens int            `json:"total_tokens"`
	Allocations map[string]int `json:"allocations"`
}

func (b ContextBudget) Allocated() int {
	total := 0
	for _, v := range b.Allocations {
		total += v
	}
	return total
}
