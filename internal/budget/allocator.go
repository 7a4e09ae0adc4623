package budget

import (
	"fmt"
	"strings"

	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
)

// TruncationMarker is appended (or prepended, for history) to any section
// that had content cut to fit its allocation.
const TruncationMarker = "[...truncated to fit context window...]"

// Weights order the competition for leftover budget. Compliance sources
// outrank conversation history, which outranks document context.
type Weights struct {
	Compliance int
	History    int
	Document   int
}

func DefaultWeights() Weights {
	return Weights{Compliance: 3, History: 2, Document: 1}
}

func (w Weights) of(section string) int {
	switch section {
	case model.SectionComplianceSources:
		return w.Compliance
	case model.SectionConversationHistory:
		return w.History
	case model.SectionDocumentContext:
		return w.Document
	}
	return 0
}

// priorityOrder is the redistribution order for unused allocation.
var priorityOrder = []string{
	model.SectionComplianceSources,
	model.SectionConversationHistory,
	model.SectionDocumentContext,
}

type Allocator struct {
	est     *Estimator
	weights Weights
}

func NewAllocator(est *Estimator, weights Weights) *Allocator {
	if weights.Compliance <= 0 && weights.History <= 0 && weights.Document <= 0 {
		weights = DefaultWeights()
	}
	return &Allocator{est: est, weights: weights}
}

func (a *Allocator) Estimator() *Estimator {
	return a.est
}

// Allocate reserves the system instructions off the top, then splits the
// remainder across the requested sections by weight, capping each section at
// its own estimated need and redistributing spare budget in one priority
// pass. System instructions exceeding the total budget is a fatal
// configuration error, never a degradation.
func (a *Allocator) Allocate(totalTokens int, systemInstructions string, sections map[string]string) (model.ContextBudget, error) {
	sysNeed := a.est.Count(systemInstructions)
	if sysNeed > totalTokens {
		return model.ContextBudget{}, fmt.Errorf(
			"system instructions need %d tokens but total budget is %d: %w",
			sysNeed, totalTokens, appErr.ErrConfiguration)
	}

	needs := make(map[string]int, len(sections))
	weightSum := 0
	for section, text := range sections {
		need := a.est.Count(text)
		if need == 0 {
			continue
		}
		needs[section] = need
		weightSum += a.weights.of(section)
	}

	allocations := map[string]int{model.SectionSystemInstructions: sysNeed}
	remaining := totalTokens - sysNeed
	if weightSum == 0 || remaining <= 0 {
		return model.ContextBudget{TotalTokens: totalTokens, Allocations: allocations}, nil
	}

	for _, section := range priorityOrder {
		need, ok := needs[section]
		if !ok {
			continue
		}
		share := remaining * a.weights.of(section) / weightSum
		if share > need {
			share = need
		}
		allocations[section] = share
	}
	// One pass: hand the spare (capped shares plus rounding leftover) to the
	// highest-priority sections still short of their need.
	spare := remaining - sumShares(allocations, sysNeed)
	for _, section := range priorityOrder {
		if spare <= 0 {
			break
		}
		need, ok := needs[section]
		if !ok {
			continue
		}
		short := need - allocations[section]
		if short <= 0 {
			continue
		}
		if short > spare {
			short = spare
		}
		allocations[section] += short
		spare -= short
	}
	return model.ContextBudget{TotalTokens: totalTokens, Allocations: allocations}, nil
}

func sumShares(allocations map[string]int, sysNeed int) int {
	total := 0
	for _, v := range allocations {
		total += v
	}
	return total - sysNeed
}

// Fit truncates text to the token limit, keeping the head. Text that
// already fits is returned unchanged, so Fit is idempotent on fitting input.
func (a *Allocator) Fit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if a.est.Count(text) <= limit {
		return text
	}
	markerCost := a.est.Count(TruncationMarker)
	budget := limit - markerCost
	if budget <= 0 {
		return ""
	}
	cut := []rune(text)
	for a.est.Count(string(cut)) > budget {
		// Rune-proportional shrink, repeated until the estimate fits.
		keep := len(cut) * budget / (a.est.Count(string(cut)) + 1)
		if keep >= len(cut) {
			keep = len(cut) - 1
		}
		if keep <= 0 {
			return TruncationMarker
		}
		cut = []rune(strings.TrimSpace(string(cut[:keep])))
		if len(cut) == 0 {
			return TruncationMarker
		}
	}
	return string(cut) + "\n" + TruncationMarker
}

// FitBlocksHead keeps leading blocks while they fit, dropping from the end.
// Used for relevance-ordered sections: the most relevant items come first.
// When blocks are dropped, the marker's own cost is charged against the
// limit, so the output never exceeds it.
func (a *Allocator) FitBlocksHead(blocks []string, sep string, limit int) string {
	if len(blocks) == 0 || limit <= 0 {
		return ""
	}
	sepCost := a.est.Count(sep)
	if a.blocksCost(blocks, sepCost) <= limit {
		return strings.Join(blocks, sep)
	}
	budget := limit - a.est.Count("\n"+TruncationMarker)
	kept := make([]string, 0, len(blocks))
	used := 0
	for _, block := range blocks {
		cost := a.est.Count(block)
		if len(kept) > 0 {
			cost += sepCost
		}
		if used+cost > budget {
			break
		}
		kept = append(kept, block)
		used += cost
	}
	if len(kept) == 0 {
		// Even the first block alone is too big; cut inside it.
		return a.Fit(blocks[0], limit)
	}
	return strings.Join(kept, sep) + "\n" + TruncationMarker
}

// FitBlocksTail keeps trailing blocks while they fit, dropping from the
// front. Used for conversation history: the most recent turns survive.
func (a *Allocator) FitBlocksTail(blocks []string, sep string, limit int) string {
	if len(blocks) == 0 || limit <= 0 {
		return ""
	}
	sepCost := a.est.Count(sep)
	if a.blocksCost(blocks, sepCost) <= limit {
		return strings.Join(blocks, sep)
	}
	budget := limit - a.est.Count(TruncationMarker+"\n")
	kept := make([]string, 0, len(blocks))
	used := 0
	for i := len(blocks) - 1; i >= 0; i-- {
		cost := a.est.Count(blocks[i])
		if len(kept) > 0 {
			cost += sepCost
		}
		if used+cost > budget {
			break
		}
		kept = append([]string{blocks[i]}, kept...)
		used += cost
	}
	if len(kept) == 0 {
		return a.Fit(blocks[len(blocks)-1], limit)
	}
	return TruncationMarker + "\n" + strings.Join(kept, sep)
}

func (a *Allocator) blocksCost(blocks []string, sepCost int) int {
	total := 0
	for i, block := range blocks {
		if i > 0 {
			total += sepCost
		}
		total += a.est.Count(block)
	}
	return total
}
