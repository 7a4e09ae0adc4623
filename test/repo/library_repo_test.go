package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
	"github.com/advisorly/fincopy/internal/repo"
	"github.com/advisorly/fincopy/test/testutil"
)

func TestLibraryRepoCRUD(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	items := repo.NewLibraryRepo(db)
	now := time.Now().UnixMilli()
	id := uuid.NewString()
	item := &model.LibraryItem{
		ID:          id,
		Corpus:      model.CorpusComplianceRule,
		Title:       "risk disclosure",
		Content:     "All investments carry risk.",
		Tags:        []string{"risk"},
		ContentHash: "hash-1",
		State:       model.LibraryItemStateNormal,
		Ctime:       now,
		Mtime:       now,
	}
	require.NoError(t, items.Save(context.Background(), item))

	fetched, err := items.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "risk disclosure", fetched.Title)
	require.Equal(t, []string{"risk"}, fetched.Tags)

	item.Content = "All investments carry risk, including loss of principal."
	item.ContentHash = "hash-2"
	item.Mtime = now + 1
	require.NoError(t, items.Save(context.Background(), item))
	fetched, err = items.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "hash-2", fetched.ContentHash)

	listed, err := items.List(context.Background(), model.CorpusComplianceRule, 0, 100)
	require.NoError(t, err)
	found := false
	for _, it := range listed {
		require.Equal(t, model.CorpusComplianceRule, it.Corpus)
		if it.ID == id {
			found = true
		}
	}
	require.True(t, found)

	require.NoError(t, items.Delete(context.Background(), id, now+2))
	_, err = items.Get(context.Background(), id)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.ErrorIs(t, items.Delete(context.Background(), "no-such-id", now), appErr.ErrNotFound)
}
