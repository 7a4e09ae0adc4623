package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/advisorly/fincopy/internal/ai"
	"github.com/advisorly/fincopy/internal/model"
)

// VectorSearcher answers nearest-neighbor queries over one corpus.
type VectorSearcher interface {
	Search(ctx context.Context, corpus model.Corpus, embedding []float32, topK int, minSimilarity float64) ([]model.ContextItem, error)
}

// LexicalSearcher answers keyword queries over one corpus.
type LexicalSearcher interface {
	Search(ctx context.Context, corpus model.Corpus, query string, limit int) ([]model.ContextItem, error)
}

type Config struct {
	TopKPerCorpus       int
	SimilarityThreshold float64
	Timeout             time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopKPerCorpus:       5,
		SimilarityThreshold: 0.1,
		Timeout:             15 * time.Second,
	}
}

// Orchestrator walks the retrieval strategy chain: vector first, lexical
// (hybrid when partial vector results exist) second, baseline disclaimers
// last. Execute never returns an error; every failure is converted into an
// escalation and recorded in the result's fallback reason.
type Orchestrator struct {
	embedder ai.IEmbedder
	vectors  VectorSearcher
	lexical  LexicalSearcher
	assessor *Assessor
	cfg      Config
}

func NewOrchestrator(embedder ai.IEmbedder, vectors VectorSearcher, lexical LexicalSearcher, assessor *Assessor, cfg Config) *Orchestrator {
	if cfg.TopKPerCorpus <= 0 {
		cfg.TopKPerCorpus = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Orchestrator{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexical,
		assessor: assessor,
		cfg:      cfg,
	}
}

var corpora = []model.Corpus{model.CorpusMarketingExample, model.CorpusComplianceRule}

func (o *Orchestrator) Execute(ctx context.Context, query, contentType, audienceType string) (model.SearchResult, model.ContextQuality) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))

	var reasons []string

	vectorItems, err := o.vectorSearch(ctx, query, contentType, audienceType)
	if err != nil {
		logger.Warn("vector search unavailable", zap.Error(err))
		reasons = append(reasons, "vector search failed: "+err.Error())
	} else {
		quality := o.assessor.Assess(vectorItems)
		if quality.Sufficient {
			return model.SearchResult{
				Items:    vectorItems,
				Strategy: model.SearchStrategyVector,
			}, quality
		}
		reasons = append(reasons, "vector context insufficient: "+quality.Reason)
	}

	textItems, err := o.textSearch(ctx, query, contentType, audienceType)
	if err != nil {
		logger.Warn("lexical search unavailable", zap.Error(err))
		reasons = append(reasons, "lexical search failed: "+err.Error())
	}
	combined := mergeItems(vectorItems, textItems)
	strategy := model.SearchStrategyText
	if len(vectorItems) > 0 && len(textItems) > 0 {
		// Hybrid only when both stages actually contributed items.
		strategy = model.SearchStrategyHybrid
	}
	quality := o.assessor.Assess(combined)
	if quality.Sufficient {
		return model.SearchResult{
			Items:             combined,
			Strategy:          strategy,
			FallbackTriggered: true,
			FallbackReason:    strings.Join(reasons, "; "),
		}, quality
	}
	reasons = append(reasons, "combined context insufficient: "+quality.Reason)

	// Last resort: pad with the baseline disclaimers so downstream stages
	// always see at least one compliance rule.
	final := mergeItems(combined, EmergencyItems())
	quality = o.assessor.Assess(final)
	logger.Warn("search escalated to emergency baseline", zap.Strings("reasons", reasons))
	return model.SearchResult{
		Items:             final,
		Strategy:          model.SearchStrategyEmergency,
		FallbackTriggered: true,
		FallbackReason:    strings.Join(reasons, "; "),
	}, quality
}

// vectorSearch embeds the query once and fans out one index query per
// corpus. One corpus failing is tolerated; both failing, or the embedding
// itself failing, fails the strategy.
func (o *Orchestrator) vectorSearch(ctx context.Context, query, contentType, audienceType string) ([]model.ContextItem, error) {
	embedding, err := o.embedder.Embed(ctx, searchText(query, contentType, audienceType), "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results := make([][]model.ContextItem, len(corpora))
	errs := make([]error, len(corpora))
	g, gctx := errgroup.WithContext(ctx)
	for i, corpus := range corpora {
		g.Go(func() error {
			items, err := o.vectors.Search(gctx, corpus, embedding, o.cfg.TopKPerCorpus, o.cfg.SimilarityThreshold)
			if err != nil {
				logutil.GetLogger(gctx).Warn("vector corpus query failed",
					zap.String("corpus", string(corpus)), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()
	if allFailed(errs) {
		return nil, fmt.Errorf("vector index unavailable: %v", joinErrs(errs))
	}
	return rankItems(results), nil
}

func (o *Orchestrator) textSearch(ctx context.Context, query, contentType, audienceType string) ([]model.ContextItem, error) {
	keywords := searchText(query, contentType, audienceType)
	results := make([][]model.ContextItem, len(corpora))
	errs := make([]error, len(corpora))
	g, gctx := errgroup.WithContext(ctx)
	for i, corpus := range corpora {
		g.Go(func() error {
			items, err := o.lexical.Search(gctx, corpus, keywords, o.cfg.TopKPerCorpus)
			if err != nil {
				logutil.GetLogger(gctx).Warn("lexical corpus query failed",
					zap.String("corpus", string(corpus)), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()
	if allFailed(errs) {
		return nil, fmt.Errorf("lexical search unavailable: %v", joinErrs(errs))
	}
	return rankItems(results), nil
}

// searchText folds content and audience hints into the query so both search
// paths see the same intent.
func searchText(query, contentType, audienceType string) string {
	parts := []string{query}
	if contentType != "" {
		parts = append(parts, contentType)
	}
	if audienceType != "" {
		parts = append(parts, audienceType)
	}
	return strings.Join(parts, " ")
}

// rankItems flattens per-corpus result sets, highest similarity first.
// Lexical hits carry no similarity and keep their relative relevance order
// after all vector hits.
func rankItems(groups [][]model.ContextItem) []model.ContextItem {
	var items []model.ContextItem
	for _, group := range groups {
		items = append(items, group...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SimilarityOrZero() > items[j].SimilarityOrZero()
	})
	return items
}

// mergeItems deduplicates by id; earlier slices win, so vector hits keep
// their similarity score over lexical duplicates.
func mergeItems(groups ...[]model.ContextItem) []model.ContextItem {
	seen := make(map[string]struct{})
	var merged []model.ContextItem
	for _, group := range groups {
		for _, item := range group {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}
	return len(errs) > 0
}

func joinErrs(errs []error) string {
	var parts []string
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}
