package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/advisorly/fincopy/internal/ai"
	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
	"github.com/advisorly/fincopy/internal/repo"
)

// LibraryService maintains the content library both search indexes are
// built from. Writes re-embed eagerly but tolerate embedding failure; the
// sync job picks up whatever was missed.
type LibraryService struct {
	library  *repo.LibraryRepo
	vectors  *repo.VectorRepo
	embedder ai.IEmbedder
}

func NewLibraryService(library *repo.LibraryRepo, vectors *repo.VectorRepo, embedder ai.IEmbedder) *LibraryService {
	return &LibraryService{library: library, vectors: vectors, embedder: embedder}
}

type LibraryUpsertInput struct {
	ID           string
	Corpus       model.Corpus
	Title        string
	Content      string
	ContentType  string
	AudienceType string
	Tags         []string
}

func (s *LibraryService) Upsert(ctx context.Context, input LibraryUpsertInput) (*model.LibraryItem, error) {
	if input.Content == "" {
		return nil, appErr.ErrInvalid
	}
	if input.Corpus != model.CorpusMarketingExample && input.Corpus != model.CorpusComplianceRule {
		return nil, fmt.Errorf("unknown corpus %q: %w", input.Corpus, appErr.ErrInvalid)
	}
	now := time.Now().UnixMilli()
	item := &model.LibraryItem{
		ID:           input.ID,
		Corpus:       input.Corpus,
		Title:        input.Title,
		Content:      input.Content,
		ContentType:  input.ContentType,
		AudienceType: input.AudienceType,
		Tags:         input.Tags,
		ContentHash:  contentHash(input.Title, input.Content),
		State:        model.LibraryItemStateNormal,
		Ctime:        now,
		Mtime:        now,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := s.library.Save(ctx, item); err != nil {
		return nil, err
	}
	if err := s.syncEmbedding(ctx, item); err != nil {
		logutil.GetLogger(ctx).Warn("eager embedding failed, sync job will retry",
			zap.String("item_id", item.ID), zap.Error(err))
	}
	return item, nil
}

func (s *LibraryService) Get(ctx context.Context, id string) (*model.LibraryItem, error) {
	return s.library.Get(ctx, id)
}

func (s *LibraryService) List(ctx context.Context, corpus model.Corpus, offset, limit uint) ([]model.LibraryItem, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}
	return s.library.List(ctx, corpus, offset, limit)
}

func (s *LibraryService) Delete(ctx context.Context, id string) error {
	if err := s.library.Delete(ctx, id, time.Now().UnixMilli()); err != nil {
		return err
	}
	return s.vectors.DeleteEmbedding(ctx, id)
}

// ProcessPendingEmbeddings re-embeds library items whose embedding is
// missing or stale. Called by the cron job; one failed item does not stop
// the batch.
func (s *LibraryService) ProcessPendingEmbeddings(ctx context.Context, batch int) error {
	items, err := s.vectors.ListStaleItems(ctx, batch)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	var failed int
	for i := range items {
		if err := s.syncEmbedding(ctx, &items[i]); err != nil {
			logger.Warn("embedding sync failed", zap.String("item_id", items[i].ID), zap.Error(err))
			failed++
		}
	}
	if len(items) > 0 {
		logger.Info("embedding sync batch done", zap.Int("total", len(items)), zap.Int("failed", failed))
	}
	return nil
}

func (s *LibraryService) syncEmbedding(ctx context.Context, item *model.LibraryItem) error {
	if s.embedder == nil {
		return nil
	}
	hash := item.ContentHash
	if hash == "" {
		hash = contentHash(item.Title, item.Content)
	}
	existing, ok, err := s.vectors.GetEmbeddingHash(ctx, item.ID)
	if err == nil && ok && existing == hash {
		return nil
	}
	// Title improves recall; markdown markup only adds noise.
	text := item.Title + "\n" + ai.PlainText(item.Content)
	embedding, err := s.embedder.Embed(ctx, text, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return err
	}
	return s.vectors.SaveEmbedding(ctx, &model.LibraryEmbedding{
		ItemID:      item.ID,
		Corpus:      item.Corpus,
		Embedding:   embedding,
		ContentHash: hash,
		Mtime:       time.Now().UnixMilli(),
	})
}

func contentHash(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\n" + content))
	return hex.EncodeToString(sum[:])
}
