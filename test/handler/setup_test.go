package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/advisorly/fincopy/internal/budget"
	"github.com/advisorly/fincopy/internal/handler"
	"github.com/advisorly/fincopy/internal/middleware"
	"github.com/advisorly/fincopy/internal/prompt"
	"github.com/advisorly/fincopy/internal/repo"
	"github.com/advisorly/fincopy/internal/retrieval"
	"github.com/advisorly/fincopy/internal/service"
	"github.com/advisorly/fincopy/test/testutil"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, promptText string) (string, error) {
	tmpl := prompt.DefaultTemplates()
	return tmpl.DelimiterStart + "\nInvesting involves risk.\n" + tmpl.DelimiterEnd, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return testutil.TestVector(768, 1), nil
}

func (stubEmbedder) ModelName() string { return "stub" }

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	libraryRepo := repo.NewLibraryRepo(db)
	vectorRepo := repo.NewVectorRepo(db)
	ftsRepo := repo.NewFTSRepo(db)
	sessionRepo := repo.NewSessionRepo(db)

	assessor := retrieval.NewAssessor(retrieval.DefaultQualityConfig())
	search := retrieval.NewOrchestrator(stubEmbedder{}, vectorRepo, ftsRepo, assessor, retrieval.DefaultConfig())
	allocator := budget.NewAllocator(budget.NewEstimator(""), budget.DefaultWeights())
	prompts := prompt.NewConstructor(prompt.DefaultTemplates())

	contextService := service.NewContextService(sessionRepo, 0)
	libraryService := service.NewLibraryService(libraryRepo, vectorRepo, stubEmbedder{})
	generationService := service.NewGenerationService(
		search, assessor, contextService, allocator, prompts, stubGenerator{},
		service.GenerationConfig{
			TotalTokens:          8192,
			ReservedOutputTokens: 1024,
			Timeout:              5 * time.Second,
			RetryAttempts:        1,
		})

	deps := handler.RouterDeps{
		Generate: handler.NewGenerateHandler(generationService, contextService),
		Library:  handler.NewLibraryHandler(libraryService),
		Sessions: handler.NewSessionHandler(contextService),
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine, cleanup
}
