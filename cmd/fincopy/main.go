package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/advisorly/fincopy/internal/ai"
	"github.com/advisorly/fincopy/internal/budget"
	"github.com/advisorly/fincopy/internal/config"
	"github.com/advisorly/fincopy/internal/db"
	"github.com/advisorly/fincopy/internal/embedcache"
	"github.com/advisorly/fincopy/internal/handler"
	"github.com/advisorly/fincopy/internal/job"
	"github.com/advisorly/fincopy/internal/middleware"
	"github.com/advisorly/fincopy/internal/prompt"
	"github.com/advisorly/fincopy/internal/repo"
	"github.com/advisorly/fincopy/internal/retrieval"
	"github.com/advisorly/fincopy/internal/schedule"
	"github.com/advisorly/fincopy/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fincopy",
		Short: "compliance content generation server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the fincopy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAI(cfg config.AIConfig) (ai.IGenerator, ai.IEmbedder, error) {
	var gens []ai.GeneratorEntry
	var embs []ai.EmbedderEntry
	for _, pc := range cfg.Providers {
		provider, err := ai.NewProvider(pc.Provider, pc.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %s: %w", pc.Provider, err)
		}
		if pc.GenerateModel != "" {
			gens = append(gens, ai.GeneratorEntry{
				Name:      pc.Provider + "/" + pc.GenerateModel,
				Generator: ai.NewGenerator(provider, pc.GenerateModel),
			})
		}
		if pc.EmbedModel != "" {
			embs = append(embs, ai.EmbedderEntry{
				Name:     pc.Provider + "/" + pc.EmbedModel,
				Embedder: ai.NewEmbedder(provider, pc.EmbedModel),
			})
		}
	}
	generator := ai.NewGroupGenerator(gens)
	if generator == nil {
		return nil, nil, fmt.Errorf("no generation model configured")
	}
	embedder := ai.NewGroupEmbedder(embs)
	if embedder == nil {
		return nil, nil, fmt.Errorf("no embedding model configured")
	}
	embedder = embedcache.Wrap(embedder, cfg.EmbedCacheSize, time.Duration(cfg.EmbedCacheTTLMinute)*time.Minute)
	return generator, embedder, nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server", zap.Int("port", cfg.Port))

	generator, embedder, err := buildAI(cfg.AI)
	if err != nil {
		return err
	}

	libraryRepo := repo.NewLibraryRepo(conn)
	vectorRepo := repo.NewVectorRepo(conn)
	ftsRepo := repo.NewFTSRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)

	assessor := retrieval.NewAssessor(retrieval.QualityConfig{
		MarketingWeight:      cfg.Quality.MarketingWeight,
		ComplianceWeight:     cfg.Quality.ComplianceWeight,
		VectorBonus:          cfg.Quality.VectorBonus,
		SufficiencyThreshold: cfg.Quality.SufficiencyThreshold,
	})
	searchOrchestrator := retrieval.NewOrchestrator(embedder, vectorRepo, ftsRepo, assessor, retrieval.Config{
		TopKPerCorpus:       cfg.Retrieval.TopKPerCorpus,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		Timeout:             time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
	})

	estimator := budget.NewEstimator(cfg.Budget.TokenizerEncoding)
	allocator := budget.NewAllocator(estimator, budget.Weights{
		Compliance: cfg.Budget.ComplianceWeight,
		History:    cfg.Budget.HistoryWeight,
		Document:   cfg.Budget.DocumentWeight,
	})
	prompts := prompt.NewConstructor(prompt.DefaultTemplates())

	// Fail fast on a budget that cannot even hold the system instructions.
	usable := cfg.Budget.TotalTokens - cfg.Budget.ReservedOutputTokens
	for _, refinement := range []bool{false, true} {
		if _, err := allocator.Allocate(usable, prompts.SystemInstructions(refinement), nil); err != nil {
			return fmt.Errorf("validate token budget: %w", err)
		}
	}

	contextService := service.NewContextService(sessionRepo, 0)
	libraryService := service.NewLibraryService(libraryRepo, vectorRepo, embedder)
	generationService := service.NewGenerationService(
		searchOrchestrator, assessor, contextService, allocator, prompts, generator,
		service.GenerationConfig{
			TotalTokens:          cfg.Budget.TotalTokens,
			ReservedOutputTokens: cfg.Budget.ReservedOutputTokens,
			Timeout:              time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			RetryAttempts:        uint64(cfg.AI.RetryAttempts),
		})

	deps := handler.RouterDeps{
		Generate: handler.NewGenerateHandler(generationService, contextService),
		Library:  handler.NewLibraryHandler(libraryService),
		Sessions: handler.NewSessionHandler(contextService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingSyncJob(libraryService, cfg.Jobs.EmbeddingSyncBatch), cfg.Jobs.EmbeddingSyncSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(context.Background()).Info("http server listening",
		zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
