package retrieval

import (
	"fmt"

	"github.com/advisorly/fincopy/internal/model"
)

// QualityConfig carries the scoring coefficients. All weights must be
// non-negative; the assessor's guarantees (monotonicity, compliance
// mandatory) hold for any such values.
type QualityConfig struct {
	MarketingWeight      float64
	ComplianceWeight     float64
	VectorBonus          float64
	SufficiencyThreshold float64
}

func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MarketingWeight:      0.15,
		ComplianceWeight:     0.25,
		VectorBonus:          0.3,
		SufficiencyThreshold: 0.6,
	}
}

// Assessor scores whether a retrieved item set is safe to generate from.
// Pure and deterministic: no I/O, no clock, no randomness.
type Assessor struct {
	cfg QualityConfig
}

func NewAssessor(cfg QualityConfig) *Assessor {
	return &Assessor{cfg: cfg}
}

func (a *Assessor) Assess(items []model.ContextItem) model.ContextQuality {
	if len(items) == 0 {
		return model.ContextQuality{Score: 0, Sufficient: false, Reason: "no context retrieved"}
	}

	var marketing, compliance int
	vectorUsed := false
	for _, item := range items {
		switch item.Corpus {
		case model.CorpusMarketingExample:
			marketing++
		case model.CorpusComplianceRule:
			compliance++
		}
		if item.VectorSourced() {
			vectorUsed = true
		}
	}

	score := a.cfg.MarketingWeight*float64(marketing) + a.cfg.ComplianceWeight*float64(compliance)
	if vectorUsed {
		score += a.cfg.VectorBonus
	}
	if score > 1.0 {
		score = 1.0
	}

	// Compliance rules are mandatory: marketing examples alone are never
	// enough to generate from, no matter how well they score.
	if compliance == 0 {
		return model.ContextQuality{
			Score:      score,
			Sufficient: false,
			Reason:     fmt.Sprintf("no compliance rules found (%d marketing examples present)", marketing),
		}
	}
	if score < a.cfg.SufficiencyThreshold {
		return model.ContextQuality{
			Score:      score,
			Sufficient: false,
			Reason: fmt.Sprintf("context score %.2f below threshold %.2f (%d marketing, %d compliance, vector=%t)",
				score, a.cfg.SufficiencyThreshold, marketing, compliance, vectorUsed),
		}
	}
	return model.ContextQuality{
		Score:      score,
		Sufficient: true,
		Reason: fmt.Sprintf("sufficient: %d marketing examples, %d compliance rules, vector=%t",
			marketing, compliance, vectorUsed),
	}
}
