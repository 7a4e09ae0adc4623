package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/advisorly/fincopy/internal/model"
)

type fakeEmbedder struct {
	fail  bool
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("embedding provider down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeVectorIndex struct {
	fail    bool
	byCorp  map[model.Corpus][]model.ContextItem
	queries int
}

func (f *fakeVectorIndex) Search(ctx context.Context, corpus model.Corpus, embedding []float32, topK int, minSimilarity float64) ([]model.ContextItem, error) {
	f.queries++
	if f.fail {
		return nil, fmt.Errorf("vector index down")
	}
	return f.byCorp[corpus], nil
}

type fakeLexical struct {
	fail    bool
	byCorp  map[model.Corpus][]model.ContextItem
	queries int
}

func (f *fakeLexical) Search(ctx context.Context, corpus model.Corpus, query string, limit int) ([]model.ContextItem, error) {
	f.queries++
	if f.fail {
		return nil, fmt.Errorf("lexical search down")
	}
	return f.byCorp[corpus], nil
}

func vectorItem(id string, corpus model.Corpus, score float64) model.ContextItem {
	return model.ContextItem{ID: id, Corpus: corpus, Text: "text " + id, Similarity: &score}
}

func lexicalItem(id string, corpus model.Corpus) model.ContextItem {
	return model.ContextItem{ID: id, Corpus: corpus, Text: "text " + id}
}

func richVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusMarketingExample: {
			vectorItem("m1", model.CorpusMarketingExample, 0.9),
			vectorItem("m2", model.CorpusMarketingExample, 0.5),
			vectorItem("m3", model.CorpusMarketingExample, 0.4),
		},
		model.CorpusComplianceRule: {
			vectorItem("c1", model.CorpusComplianceRule, 0.8),
			vectorItem("c2", model.CorpusComplianceRule, 0.6),
			vectorItem("c3", model.CorpusComplianceRule, 0.3),
		},
	}}
}

func newTestOrchestrator(embedder *fakeEmbedder, vectors *fakeVectorIndex, lexical *fakeLexical) *Orchestrator {
	return NewOrchestrator(embedder, vectors, lexical, NewAssessor(DefaultQualityConfig()), DefaultConfig())
}

func TestExecuteVectorSufficient(t *testing.T) {
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, richVectorIndex(), &fakeLexical{})

	result, quality := orchestrator.Execute(context.Background(), "retirement planning", "", "")
	require.Equal(t, model.SearchStrategyVector, result.Strategy)
	require.False(t, result.FallbackTriggered)
	require.Empty(t, result.FallbackReason)
	require.True(t, quality.Sufficient)
	require.Equal(t, 3, result.MarketingCount())
	require.Equal(t, 3, result.ComplianceCount())
}

func TestExecuteVectorOutageEscalatesToText(t *testing.T) {
	lexical := &fakeLexical{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusMarketingExample: {
			lexicalItem("m1", model.CorpusMarketingExample),
			lexicalItem("m2", model.CorpusMarketingExample),
			lexicalItem("m3", model.CorpusMarketingExample),
		},
		model.CorpusComplianceRule: {
			lexicalItem("c1", model.CorpusComplianceRule),
			lexicalItem("c2", model.CorpusComplianceRule),
			lexicalItem("c3", model.CorpusComplianceRule),
		},
	}}
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, &fakeVectorIndex{fail: true}, lexical)

	result, quality := orchestrator.Execute(context.Background(), "retirement planning", "", "")
	require.Equal(t, model.SearchStrategyText, result.Strategy)
	require.True(t, result.FallbackTriggered)
	require.Contains(t, result.FallbackReason, "vector")
	require.True(t, quality.Sufficient)
	require.GreaterOrEqual(t, result.ComplianceCount(), 1)
}

func TestExecuteEmbedderOutageEscalates(t *testing.T) {
	lexical := &fakeLexical{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusComplianceRule: {
			lexicalItem("c1", model.CorpusComplianceRule),
			lexicalItem("c2", model.CorpusComplianceRule),
			lexicalItem("c3", model.CorpusComplianceRule),
		},
	}}
	vectors := richVectorIndex()
	orchestrator := newTestOrchestrator(&fakeEmbedder{fail: true}, vectors, lexical)

	result, _ := orchestrator.Execute(context.Background(), "retirement planning", "", "")
	require.True(t, result.FallbackTriggered)
	require.Contains(t, result.FallbackReason, "embed query")
	// The index itself was never reachable without an embedding.
	require.Zero(t, vectors.queries)
}

func TestExecuteEverythingDownYieldsEmergency(t *testing.T) {
	orchestrator := newTestOrchestrator(&fakeEmbedder{fail: true}, &fakeVectorIndex{fail: true}, &fakeLexical{fail: true})

	result, quality := orchestrator.Execute(context.Background(), "retirement planning", "", "")
	require.Equal(t, model.SearchStrategyEmergency, result.Strategy)
	require.True(t, result.FallbackTriggered)
	require.GreaterOrEqual(t, result.ComplianceCount(), 1)
	require.True(t, quality.Sufficient)
}

func TestExecuteHybridCombinesAndDeduplicates(t *testing.T) {
	// Vector finds a thin result set; lexical finds overlapping ids. The
	// hybrid result keeps the vector variant of every duplicate.
	vectors := &fakeVectorIndex{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusMarketingExample: {vectorItem("m1", model.CorpusMarketingExample, 0.9)},
	}}
	lexical := &fakeLexical{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusMarketingExample: {lexicalItem("m1", model.CorpusMarketingExample)},
		model.CorpusComplianceRule: {
			lexicalItem("c1", model.CorpusComplianceRule),
			lexicalItem("c2", model.CorpusComplianceRule),
			lexicalItem("c3", model.CorpusComplianceRule),
		},
	}}
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, vectors, lexical)

	result, quality := orchestrator.Execute(context.Background(), "ira rollover", "", "")
	require.Equal(t, model.SearchStrategyHybrid, result.Strategy)
	require.True(t, quality.Sufficient)
	require.Equal(t, 1, result.MarketingCount())

	var m1 *model.ContextItem
	for i := range result.Items {
		if result.Items[i].ID == "m1" {
			m1 = &result.Items[i]
		}
	}
	require.NotNil(t, m1)
	require.True(t, m1.VectorSourced(), "vector hit must win the duplicate")
}

func TestExecuteDeterministicStrategySelection(t *testing.T) {
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, richVectorIndex(), &fakeLexical{})
	first, _ := orchestrator.Execute(context.Background(), "annuity brochure", "brochure", "retail")
	for i := 0; i < 3; i++ {
		result, _ := orchestrator.Execute(context.Background(), "annuity brochure", "brochure", "retail")
		require.Equal(t, first.Strategy, result.Strategy)
	}
}

func TestExecuteItemsOrderedBySimilarity(t *testing.T) {
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, richVectorIndex(), &fakeLexical{})
	result, _ := orchestrator.Execute(context.Background(), "retirement planning", "", "")
	for i := 1; i < len(result.Items); i++ {
		require.GreaterOrEqual(t,
			result.Items[i-1].SimilarityOrZero(),
			result.Items[i].SimilarityOrZero())
	}
}

func TestExecutePartialVectorWithLexicalOutageIsNotHybrid(t *testing.T) {
	vectors := &fakeVectorIndex{byCorp: map[model.Corpus][]model.ContextItem{
		model.CorpusMarketingExample: {
			vectorItem("m1", model.CorpusMarketingExample, 0.9),
		},
	}}
	orchestrator := newTestOrchestrator(&fakeEmbedder{}, vectors, &fakeLexical{fail: true})

	result, quality := orchestrator.Execute(context.Background(), "annuity comparison", "", "")
	// Lexical contributed nothing, so no stage combination took place.
	require.NotEqual(t, model.SearchStrategyHybrid, result.Strategy)
	require.Equal(t, model.SearchStrategyEmergency, result.Strategy)
	require.True(t, result.FallbackTriggered)
	require.Contains(t, result.FallbackReason, "lexical search failed")
	require.True(t, quality.Sufficient)
	require.GreaterOrEqual(t, result.ComplianceCount(), 3)
}
