package job

import (
	"context"

	"github.com/advisorly/fincopy/internal/service"
)

// EmbeddingSyncJob keeps the vector index consistent with the content
// library: items whose eager embed failed, or that were edited since their
// last embed, get re-embedded in batches.
type EmbeddingSyncJob struct {
	library *service.LibraryService
	batch   int
}

func NewEmbeddingSyncJob(library *service.LibraryService, batch int) *EmbeddingSyncJob {
	if batch <= 0 {
		batch = 50
	}
	return &EmbeddingSyncJob{library: library, batch: batch}
}

func (j *EmbeddingSyncJob) Name() string {
	return "embedding_sync"
}

func (j *EmbeddingSyncJob) Run(ctx context.Context) error {
	if j.library == nil {
		return nil
	}
	return j.library.ProcessPendingEmbeddings(ctx, j.batch)
}
