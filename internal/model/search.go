package model

// SearchStrategy is the closed set of retrieval strategies, ordered from
// highest fidelity to last resort.
type SearchStrategy string

const (
	SearchStrategyVector    SearchStrategy = "vector"
	SearchStrategyText      SearchStrategy = "text"
	SearchStrategyHybrid    SearchStrategy = "hybrid"
	SearchStrategyEmergency SearchStrategy = "emergency"
)

// SearchResult is the outcome of one retrieval strategy execution.
// Items are ordered highest relevance first.
type SearchResult struct {
	Items             []ContextItem  `json:"items"`
	Strategy          SearchStrategy `json:"strategy"`
	FallbackTriggered bool           `json:"fallback_triggered"`
	FallbackReason    string         `json:"fallback_reason,omitempty"`
}

func (r SearchResult) CountByCorpus() map[Corpus]int {
	counts := make(map[Corpus]int, 2)
	for _, item := range r.Items {
		counts[item.Corpus]++
	}
	return counts
}

func (r SearchResult) MarketingCount() int {
	return r.CountByCorpus()[CorpusMarketingExample]
}

func (r SearchResult) ComplianceCount() int {
	return r.CountByCorpus()[CorpusComplianceRule]
}

func (r SearchResult) VectorUsed() bool {
	for _, item := range r.Items {
		if item.VectorSourced() {
			return true
		}
	}
	return false
}

// ContextQuality is the sufficiency assessment of a SearchResult.
// Reason is always populated, including on sufficient results.
type ContextQuality struct {
	Score      float64 `json:"score"`
	Sufficient bool    `json:"sufficient"`
	Reason     string  `json:"reason"`
}
