package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/advisorly/fincopy/internal/ai"
	"github.com/advisorly/fincopy/internal/budget"
	"github.com/advisorly/fincopy/internal/model"
	"github.com/advisorly/fincopy/internal/prompt"
	"github.com/advisorly/fincopy/internal/retrieval"
)

type stubEmbedder struct{ fail bool }

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if s.fail {
		return nil, fmt.Errorf("embedder down")
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-embed" }

type stubVectorIndex struct{ fail bool }

func (s *stubVectorIndex) Search(ctx context.Context, corpus model.Corpus, embedding []float32, topK int, minSimilarity float64) ([]model.ContextItem, error) {
	if s.fail {
		return nil, fmt.Errorf("vector index down")
	}
	sim := 0.8
	items := make([]model.ContextItem, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, model.ContextItem{
			ID:         fmt.Sprintf("%s-%d", corpus, i),
			Corpus:     corpus,
			Text:       fmt.Sprintf("reference text %d for %s", i, corpus),
			Similarity: &sim,
		})
	}
	return items, nil
}

type stubLexical struct{ fail bool }

func (s *stubLexical) Search(ctx context.Context, corpus model.Corpus, query string, limit int) ([]model.ContextItem, error) {
	if s.fail {
		return nil, fmt.Errorf("lexical search down")
	}
	return nil, nil
}

// stubGenerator fails its first failures calls, then answers with a
// delimiter-wrapped artifact.
type stubGenerator struct {
	failures int
	failWith error
	calls    int
	prompts  []string
}

func (s *stubGenerator) Generate(ctx context.Context, promptText string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, promptText)
	if s.calls <= s.failures {
		if s.failWith != nil {
			return "", s.failWith
		}
		return "", fmt.Errorf("transient provider error")
	}
	tmpl := prompt.DefaultTemplates()
	return "Here is the content:\n" + tmpl.DelimiterStart +
		"\nInvesting involves risk, including possible loss of principal.\n" +
		tmpl.DelimiterEnd, nil
}

func testGenerationConfig() GenerationConfig {
	return GenerationConfig{
		TotalTokens:          8192,
		ReservedOutputTokens: 1024,
		Timeout:              5 * time.Second,
		RetryAttempts:        2,
		CacheSize:            16,
		CacheTTL:             time.Minute,
	}
}

func newTestService(gen ai.IGenerator, cfg GenerationConfig, searchHealthy bool) *GenerationService {
	assessor := retrieval.NewAssessor(retrieval.DefaultQualityConfig())
	search := retrieval.NewOrchestrator(
		&stubEmbedder{fail: !searchHealthy},
		&stubVectorIndex{fail: !searchHealthy},
		&stubLexical{fail: !searchHealthy},
		assessor, retrieval.DefaultConfig())
	return NewGenerationService(
		search,
		assessor,
		NewContextService(nil, 0),
		budget.NewAllocator(budget.NewEstimator(""), budget.DefaultWeights()),
		prompt.NewConstructor(prompt.DefaultTemplates()),
		gen,
		cfg,
	)
}

func TestGenerateEmptyRequestFailsWithoutSideEffects(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(gen, testGenerationConfig(), true)

	res := svc.Generate(context.Background(), model.GenerationRequest{UserRequest: "   "})
	require.Equal(t, model.GenerationStatusError, res.Status)
	require.NotEmpty(t, res.Error)
	require.NotNil(t, res.SourcesUsed)
	require.Zero(t, gen.calls)
}

func TestGenerateAdvancedHappyPath(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(gen, testGenerationConfig(), true)

	res := svc.Generate(context.Background(), model.GenerationRequest{
		UserRequest:  "write an email announcing our new index fund",
		ContentType:  "email",
		AudienceType: "retail",
	})
	require.Equal(t, model.GenerationStatusSuccess, res.Status)
	require.Equal(t, model.GenerationStrategyAdvanced, res.GenerationStrategy)
	require.Equal(t, model.SearchStrategyVector, res.SearchStrategy)
	require.False(t, res.FallbackUsed)
	require.Equal(t, "Investing involves risk, including possible loss of principal.", res.Content)
	require.Equal(t, 3, res.SourcesUsed[model.CorpusComplianceRule])
	require.Equal(t, 3, res.SourcesUsed[model.CorpusMarketingExample])
	require.Greater(t, res.ContextQualityScore, 0.0)
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	gen := &stubGenerator{failures: 1}
	svc := newTestService(gen, testGenerationConfig(), true)

	res := svc.Generate(context.Background(), model.GenerationRequest{UserRequest: "write a cd promo"})
	require.Equal(t, model.GenerationStatusSuccess, res.Status)
	require.Equal(t, model.GenerationStrategyAdvanced, res.GenerationStrategy)
	require.Equal(t, 2, gen.calls)
}

func TestGenerateDowngradesOnStructuralFailure(t *testing.T) {
	// An unconfigured provider is not retried; each strategy burns exactly
	// one call until one succeeds.
	gen := &stubGenerator{failures: 2, failWith: ai.ErrUnavailable}
	svc := newTestService(gen, testGenerationConfig(), true)

	res := svc.Generate(context.Background(), model.GenerationRequest{UserRequest: "write a cd promo"})
	require.Equal(t, model.GenerationStatusSuccess, res.Status)
	require.Equal(t, model.GenerationStrategyLegacy, res.GenerationStrategy)
	require.True(t, res.FallbackUsed)
	require.Equal(t, model.SearchStrategyEmergency, res.SearchStrategy)
	require.Equal(t, 3, res.SourcesUsed[model.CorpusComplianceRule])
	require.Equal(t, 3, gen.calls)
}

func TestGenerateExhaustsChain(t *testing.T) {
	gen := &stubGenerator{failures: 100, failWith: ai.ErrUnavailable}
	svc := newTestService(gen, testGenerationConfig(), false)

	res := svc.Generate(context.Background(), model.GenerationRequest{UserRequest: "write a cd promo"})
	require.Equal(t, model.GenerationStatusError, res.Status)
	require.Equal(t, model.GenerationStrategyEmergency, res.GenerationStrategy)
	require.True(t, res.FallbackUsed)
	require.Contains(t, res.Error, "exhausted")
	require.Equal(t, 4, gen.calls)
}

func TestGenerateConfigurationErrorAbortsChain(t *testing.T) {
	cfg := testGenerationConfig()
	cfg.TotalTokens = 60
	cfg.ReservedOutputTokens = 10
	gen := &stubGenerator{}
	svc := newTestService(gen, cfg, true)

	res := svc.Generate(context.Background(), model.GenerationRequest{UserRequest: "write a cd promo"})
	require.Equal(t, model.GenerationStatusError, res.Status)
	require.Contains(t, res.Error, "configuration error")
	require.Zero(t, gen.calls, "misconfiguration must not reach the provider")
}

func TestGenerateOversizedRequestRejected(t *testing.T) {
	cfg := testGenerationConfig()
	gen := &stubGenerator{}
	svc := newTestService(gen, cfg, true)

	res := svc.Generate(context.Background(), model.GenerationRequest{
		UserRequest: strings.TrimSpace(strings.Repeat("word ", 8000)),
	})
	require.Equal(t, model.GenerationStatusError, res.Status)
	require.Contains(t, res.Error, "context budget")
	require.NotContains(t, res.Error, "configuration error")
	require.Zero(t, gen.calls)
}

func TestGenerateCachesIdenticalPrompts(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(gen, testGenerationConfig(), true)
	req := model.GenerationRequest{UserRequest: "write an email announcing our new index fund"}

	first := svc.Generate(context.Background(), req)
	second := svc.Generate(context.Background(), req)
	require.Equal(t, model.GenerationStatusSuccess, first.Status)
	require.Equal(t, first.Content, second.Content)
	require.Equal(t, 1, gen.calls)
}

func TestGenerateRefinementKeepsProvenance(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(gen, testGenerationConfig(), true)

	res := svc.Generate(context.Background(), model.GenerationRequest{
		UserRequest:    "soften the performance claims",
		CurrentContent: "Our fund returned 12% last year. Invest today!",
		IsRefinement:   true,
	})
	require.Equal(t, model.GenerationStatusSuccess, res.Status)
	require.Equal(t, model.GenerationStrategyAdvanced, res.GenerationStrategy)
	require.NotNil(t, res.SourcesUsed)
	require.Contains(t, gen.prompts[0], "CURRENT DRAFT:\nOur fund returned 12% last year. Invest today!")
}

func TestAssembledPromptNeverExceedsBudget(t *testing.T) {
	svc := newTestService(&stubGenerator{}, testGenerationConfig(), true)
	est := svc.allocator.Estimator()

	req := model.GenerationRequest{
		UserRequest:  "draft a money market promo for conservative savers",
		ContentType:  "email",
		AudienceType: "retail",
	}
	// A tight budget: just enough headroom over the sectionless prompt that
	// every section gets an allocation it has to truncate into.
	total := est.Count(svc.prompts.Build(req, nil)) + 90
	svc.cfg.TotalTokens = total + svc.cfg.ReservedOutputTokens

	long := strings.TrimSpace(strings.Repeat("regulatory disclosure wording ", 40))
	sim := 0.9
	items := []model.ContextItem{
		{ID: "c1", Corpus: model.CorpusComplianceRule, Text: long, Similarity: &sim},
		{ID: "m1", Corpus: model.CorpusMarketingExample, Text: long, Similarity: &sim},
	}
	history := []model.Message{
		{Role: model.RoleUser, Content: long},
		{Role: model.RoleAssistant, Content: long},
	}
	docs := []model.SessionDocument{{ID: "d1", Name: "fund-factsheet.pdf", Summary: long}}

	sections, err := svc.assembleSections(req, items, history, docs)
	require.NoError(t, err)
	for _, section := range []string{
		model.SectionComplianceSources,
		model.SectionConversationHistory,
		model.SectionDocumentContext,
	} {
		require.Contains(t, sections[section], budget.TruncationMarker, section)
	}
	require.LessOrEqual(t, est.Count(svc.prompts.Build(req, sections)), total)
}
