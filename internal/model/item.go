package model

// Corpus identifies one of the two fixed knowledge collections the
// retrieval layer searches.
type Corpus string

const (
	CorpusMarketingExample Corpus = "marketing_example"
	CorpusComplianceRule   Corpus = "compliance_rule"
)

// ContextItem is one candidate piece of context for a generation prompt.
// Similarity is set only for vector hits; lexical hits carry nil.
type ContextItem struct {
	ID         string            `json:"id"`
	Corpus     Corpus            `json:"corpus"`
	Text       string            `json:"text"`
	Similarity *float64          `json:"similarity,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (i ContextItem) VectorSourced() bool {
	return i.Similarity != nil
}

// SimilarityOrZero is used for ranking; lexical hits sort after any vector hit.
func (i ContextItem) SimilarityOrZero() float64 {
	if i.Similarity == nil {
		return 0
	}
	return *i.Similarity
}
