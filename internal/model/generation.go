package model

type GenerationStatus string

const (
	GenerationStatusSuccess GenerationStatus = "success"
	GenerationStatusError   GenerationStatus = "error"
)

// GenerationStrategy is the closed set of end-to-end generation strategies
// the fallback chain walks, each depending on strictly fewer collaborators
// than the one before it.
type GenerationStrategy string

const (
	GenerationStrategyAdvanced  GenerationStrategy = "advanced"
	GenerationStrategyStandard  GenerationStrategy = "standard"
	GenerationStrategyLegacy    GenerationStrategy = "legacy"
	GenerationStrategyEmergency GenerationStrategy = "emergency"
)

// GenerationRequest is the immutable input to one generation call.
type GenerationRequest struct {
	UserRequest    string `json:"user_request"`
	ContentType    string `json:"content_type,omitempty"`
	AudienceType   string `json:"audience_type,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	CurrentContent string `json:"current_content,omitempty"`
	IsRefinement   bool   `json:"is_refinement,omitempty"`
}

// RefinementMode reports whether the request modifies existing content.
// Presence of CurrentContent implies refinement even when the flag is unset.
func (r GenerationRequest) RefinementMode() bool {
	return r.IsRefinement || r.CurrentContent != ""
}

// GenerationResult carries the generated content plus full provenance
// metadata about how it was produced, regardless of success or failure.
type GenerationResult struct {
	Status              GenerationStatus   `json:"status"`
	Content             string             `json:"content"`
	SearchStrategy      SearchStrategy     `json:"search_strategy"`
	GenerationStrategy  GenerationStrategy `json:"generation_strategy"`
	SourcesUsed         map[Corpus]int     `json:"sources_used"`
	FallbackUsed        bool               `json:"fallback_used"`
	ContextQualityScore float64            `json:"context_quality_score"`
	Error               string             `json:"error,omitempty"`
}
