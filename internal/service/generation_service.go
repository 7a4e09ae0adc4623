package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/advisorly/fincopy/internal/ai"
	"github.com/advisorly/fincopy/internal/budget"
	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
	"github.com/advisorly/fincopy/internal/prompt"
	"github.com/advisorly/fincopy/internal/retrieval"
)

type GenerationConfig struct {
	TotalTokens          int
	ReservedOutputTokens int
	Timeout              time.Duration
	RetryAttempts        uint64
	CacheSize            int
	CacheTTL             time.Duration
}

// GenerationService is the public entry point for content generation. It
// walks an explicit, ordered chain of strategies, each depending on strictly
// fewer collaborators than the previous one:
//
//	advanced:  retrieval + session context + budgeted prompt
//	standard:  retrieval only, no session context
//	legacy:    baseline disclaimers, no retrieval
//	emergency: static template, nothing but the request text
//
// A request only hard-fails when it is a caller error, a fatal
// misconfiguration, or when even the emergency strategy cannot generate.
type GenerationService struct {
	search    *retrieval.Orchestrator
	assessor  *retrieval.Assessor
	contexts  *ContextService
	allocator *budget.Allocator
	prompts   *prompt.Constructor
	generator ai.IGenerator
	cfg       GenerationConfig
	cache     *expirable.LRU[string, string]
}

func NewGenerationService(
	search *retrieval.Orchestrator,
	assessor *retrieval.Assessor,
	contexts *ContextService,
	allocator *budget.Allocator,
	prompts *prompt.Constructor,
	generator ai.IGenerator,
	cfg GenerationConfig,
) *GenerationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Hour
	}
	return &GenerationService{
		search:    search,
		assessor:  assessor,
		contexts:  contexts,
		allocator: allocator,
		prompts:   prompts,
		generator: generator,
		cfg:       cfg,
		cache:     expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

type strategyAttempt struct {
	name    model.GenerationStrategy
	attempt func(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error)
}

func (s *GenerationService) chain() []strategyAttempt {
	return []strategyAttempt{
		{model.GenerationStrategyAdvanced, s.attemptAdvanced},
		{model.GenerationStrategyStandard, s.attemptStandard},
		{model.GenerationStrategyLegacy, s.attemptLegacy},
		{model.GenerationStrategyEmergency, s.attemptEmergency},
	}
}

// Generate never panics and never returns a partially-populated result:
// provenance metadata is set on every path, including errors.
func (s *GenerationService) Generate(ctx context.Context, req model.GenerationRequest) model.GenerationResult {
	if strings.TrimSpace(req.UserRequest) == "" {
		// Caller error: no retries, no fallback chain.
		return model.GenerationResult{
			Status:      model.GenerationStatusError,
			SourcesUsed: map[model.Corpus]int{},
			Error:       "user_request must not be empty",
		}
	}
	logger := logutil.GetLogger(ctx)

	var lastErr error
	for _, st := range s.chain() {
		res, err := st.attempt(ctx, req)
		if err == nil {
			res.Status = model.GenerationStatusSuccess
			res.GenerationStrategy = st.name
			if st.name != model.GenerationStrategyAdvanced {
				res.FallbackUsed = true
			}
			if res.SourcesUsed == nil {
				res.SourcesUsed = map[model.Corpus]int{}
			}
			return res
		}
		if appErr.IsConfiguration(err) {
			// Bad config, not bad luck. Downgrading would mask it.
			logger.Error("generation aborted by configuration error", zap.Error(err))
			return model.GenerationResult{
				Status:             model.GenerationStatusError,
				GenerationStrategy: st.name,
				SourcesUsed:        map[model.Corpus]int{},
				Error:              "configuration error: " + err.Error(),
			}
		}
		if appErr.IsInvalid(err) {
			logger.Warn("generation rejected", zap.Error(err))
			return model.GenerationResult{
				Status:             model.GenerationStatusError,
				GenerationStrategy: st.name,
				SourcesUsed:        map[model.Corpus]int{},
				Error:              err.Error(),
			}
		}
		lastErr = err
		logger.Warn("generation strategy failed, downgrading",
			zap.String("strategy", string(st.name)), zap.Error(err))
	}
	return model.GenerationResult{
		Status:             model.GenerationStatusError,
		GenerationStrategy: model.GenerationStrategyEmergency,
		SearchStrategy:     model.SearchStrategyEmergency,
		SourcesUsed:        map[model.Corpus]int{},
		FallbackUsed:       true,
		Error:              fmt.Sprintf("%s: %v", appErr.ErrExhausted.Error(), lastErr),
	}
}

// attemptAdvanced fans out retrieval and session context concurrently, joins
// tolerating partial failure, then allocates, compresses, and generates.
func (s *GenerationService) attemptAdvanced(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	var (
		searchRes model.SearchResult
		quality   model.ContextQuality
		history   []model.Message
		docs      []model.SessionDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		searchRes, quality = s.search.Execute(gctx, req.UserRequest, req.ContentType, req.AudienceType)
		return nil
	})
	g.Go(func() error {
		h, err := s.contexts.History(gctx, req.SessionID)
		if err != nil {
			logutil.GetLogger(gctx).Warn("history unavailable, proceeding without", zap.Error(err))
			return nil
		}
		history = h
		return nil
	})
	g.Go(func() error {
		d, err := s.contexts.Documents(gctx, req.SessionID)
		if err != nil {
			logutil.GetLogger(gctx).Warn("session documents unavailable, proceeding without", zap.Error(err))
			return nil
		}
		docs = d
		return nil
	})
	_ = g.Wait()

	sections, err := s.assembleSections(req, searchRes.Items, history, docs)
	if err != nil {
		return model.GenerationResult{}, err
	}
	content, err := s.complete(ctx, s.prompts.Build(req, sections))
	if err != nil {
		return model.GenerationResult{}, err
	}
	return model.GenerationResult{
		Content:             content,
		SearchStrategy:      searchRes.Strategy,
		SourcesUsed:         searchRes.CountByCorpus(),
		FallbackUsed:        searchRes.FallbackTriggered,
		ContextQualityScore: quality.Score,
	}, nil
}

// attemptStandard drops session context entirely: retrieval plus the
// request, nothing pulled from persistence.
func (s *GenerationService) attemptStandard(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	searchRes, quality := s.search.Execute(ctx, req.UserRequest, req.ContentType, req.AudienceType)
	sections, err := s.assembleSections(req, searchRes.Items, nil, nil)
	if err != nil {
		return model.GenerationResult{}, err
	}
	content, err := s.complete(ctx, s.prompts.Build(req, sections))
	if err != nil {
		return model.GenerationResult{}, err
	}
	return model.GenerationResult{
		Content:             content,
		SearchStrategy:      searchRes.Strategy,
		SourcesUsed:         searchRes.CountByCorpus(),
		FallbackUsed:        searchRes.FallbackTriggered,
		ContextQualityScore: quality.Score,
	}, nil
}

// attemptLegacy skips retrieval: the baseline disclaimers are compiled in.
func (s *GenerationService) attemptLegacy(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	disclaimers := retrieval.EmergencyItems()
	content, err := s.complete(ctx, s.prompts.LegacyPrompt(req, disclaimers))
	if err != nil {
		return model.GenerationResult{}, err
	}
	quality := s.assessor.Assess(disclaimers)
	counts := map[model.Corpus]int{}
	for _, item := range disclaimers {
		counts[item.Corpus]++
	}
	return model.GenerationResult{
		Content:             content,
		SearchStrategy:      model.SearchStrategyEmergency,
		SourcesUsed:         counts,
		ContextQualityScore: quality.Score,
	}, nil
}

// attemptEmergency depends on nothing but the static template. Its failure
// is the only path that surfaces a hard error to the caller.
func (s *GenerationService) attemptEmergency(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	content, err := s.complete(ctx, s.prompts.EmergencyPrompt(req))
	if err != nil {
		return model.GenerationResult{}, err
	}
	return model.GenerationResult{
		Content:        content,
		SearchStrategy: model.SearchStrategyEmergency,
		SourcesUsed:    map[model.Corpus]int{},
	}, nil
}

// assembleSections turns raw context into budgeted, compressed prompt
// sections. The system instructions, the request, and (in refinement mode)
// the current draft are non-negotiable; the rest competes for what remains.
func (s *GenerationService) assembleSections(req model.GenerationRequest, items []model.ContextItem, history []model.Message, docs []model.SessionDocument) (map[string]string, error) {
	est := s.allocator.Estimator()
	total := s.cfg.TotalTokens - s.cfg.ReservedOutputTokens
	sys := s.prompts.SystemInstructions(req.RefinementMode())

	// Distinguish bad config from an oversized request: the former aborts
	// the chain, the latter is the caller's problem.
	if _, err := s.allocator.Allocate(total, sys, nil); err != nil {
		return nil, err
	}
	// The sectionless prompt is the true fixed cost: it carries the request,
	// the draft in refinement mode, and every always-present label line.
	skeleton := s.prompts.Build(req, nil)
	if est.Count(skeleton) > total {
		return nil, fmt.Errorf("request and current draft exceed the %d token context budget: %w",
			total, appErr.ErrInvalid)
	}

	// Each candidate carries its own heading, so allocations cover the full
	// rendered cost of the section.
	candidates := map[string]string{}
	sourceBlocks := prompt.RenderSources(items)
	if len(sourceBlocks) > 0 {
		candidates[model.SectionComplianceSources] = prompt.SectionHeading(model.SectionComplianceSources) +
			"\n" + strings.Join(sourceBlocks, "\n\n")
	}
	historyBlocks := prompt.RenderHistory(history)
	if len(historyBlocks) > 0 {
		candidates[model.SectionConversationHistory] = prompt.SectionHeading(model.SectionConversationHistory) +
			"\n" + strings.Join(historyBlocks, "\n")
	}
	docBlocks := prompt.RenderDocuments(docs)
	if len(docBlocks) > 0 {
		candidates[model.SectionDocumentContext] = prompt.SectionHeading(model.SectionDocumentContext) +
			"\n" + strings.Join(docBlocks, "\n\n")
	}

	ctxBudget, err := s.allocator.Allocate(total, skeleton, candidates)
	if err != nil {
		return nil, err
	}
	sections := make(map[string]string, 3)
	fit := func(section string, blocks []string, sep string, tail bool) {
		limit := ctxBudget.Allocations[section] - est.Count(prompt.SectionHeading(section))
		if limit <= 0 {
			return
		}
		if tail {
			sections[section] = s.allocator.FitBlocksTail(blocks, sep, limit)
			return
		}
		sections[section] = s.allocator.FitBlocksHead(blocks, sep, limit)
	}
	fit(model.SectionComplianceSources, sourceBlocks, "\n\n", false)
	fit(model.SectionConversationHistory, historyBlocks, "\n", true)
	fit(model.SectionDocumentContext, docBlocks, "\n\n", false)
	return sections, nil
}

// complete runs one bounded, retried generation call and extracts the
// delimiter-wrapped artifact. Transient failures retry in place; an
// unconfigured provider fails fast so the chain can downgrade.
func (s *GenerationService) complete(ctx context.Context, promptText string) (string, error) {
	key := promptKey(promptText)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var raw string
	backoff := retry.WithMaxRetries(s.cfg.RetryAttempts, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(cctx, backoff, func(ctx context.Context) error {
		resp, err := s.generator.Generate(ctx, promptText)
		if err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				return err
			}
			return retry.RetryableError(err)
		}
		text := strings.TrimSpace(resp)
		if text == "" {
			return retry.RetryableError(fmt.Errorf("empty model response"))
		}
		raw = text
		return nil
	})
	if err != nil {
		return "", err
	}
	content := s.prompts.ExtractContent(raw)
	s.cache.Add(key, content)
	return content, nil
}

func promptKey(promptText string) string {
	sum := sha256.Sum256([]byte(promptText))
	return "gen:" + hex.EncodeToString(sum[:])
}
