package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/advisorly/fincopy/internal/model"
)

// VectorRepo is the nearest-neighbor index over library embeddings.
// Similarity is cosine: 1 - (embedding <=> query).
type VectorRepo struct {
	db *sqlx.DB
}

func NewVectorRepo(db *sqlx.DB) *VectorRepo {
	return &VectorRepo{db: db}
}

func (r *VectorRepo) Search(ctx context.Context, corpus model.Corpus, embedding []float32, topK int, minSimilarity float64) ([]model.ContextItem, error) {
	const query = `
		SELECT i.id, i.corpus, i.content, i.content_type, i.audience_type, i.tags,
		       1 - (e.embedding <=> $1) AS similarity
		FROM library_embeddings e
		JOIN library_items i ON i.id = e.item_id
		WHERE e.corpus = $2 AND i.state = $3 AND 1 - (e.embedding <=> $1) >= $4
		ORDER BY e.embedding <=> $1
		LIMIT $5
	`
	rows, err := r.db.QueryContext(ctx, query,
		pgvector.NewVector(embedding), string(corpus), model.LibraryItemStateNormal, minSimilarity, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ContextItem
	for rows.Next() {
		var (
			item         model.ContextItem
			contentType  string
			audienceType string
			tagsJSON     string
			similarity   float64
		)
		if err := rows.Scan(&item.ID, &item.Corpus, &item.Text, &contentType, &audienceType, &tagsJSON, &similarity); err != nil {
			return nil, err
		}
		item.Similarity = &similarity
		item.Metadata = itemMetadata(contentType, audienceType, tagsJSON)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *VectorRepo) SaveEmbedding(ctx context.Context, emb *model.LibraryEmbedding) error {
	const query = `
		INSERT INTO library_embeddings (item_id, corpus, embedding, content_hash, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id) DO UPDATE SET
			corpus = EXCLUDED.corpus,
			embedding = EXCLUDED.embedding,
			content_hash = EXCLUDED.content_hash,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.ItemID, string(emb.Corpus), pgvector.NewVector(emb.Embedding), emb.ContentHash, emb.Mtime)
	return err
}

func (r *VectorRepo) DeleteEmbedding(ctx context.Context, itemID string) error {
	const query = `DELETE FROM library_embeddings WHERE item_id = $1`
	_, err := r.db.ExecContext(ctx, query, itemID)
	return err
}

// ListStaleItems returns library items whose embedding is missing or older
// than the item itself. The sync job works through this set.
func (r *VectorRepo) ListStaleItems(ctx context.Context, limit int) ([]model.LibraryItem, error) {
	const query = `
		SELECT i.id, i.corpus, i.title, i.content, i.content_hash, i.mtime
		FROM library_items i
		LEFT JOIN library_embeddings e ON i.id = e.item_id
		WHERE (e.item_id IS NULL OR i.mtime > e.mtime) AND i.state = $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, model.LibraryItemStateNormal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.LibraryItem
	for rows.Next() {
		var item model.LibraryItem
		if err := rows.Scan(&item.ID, &item.Corpus, &item.Title, &item.Content, &item.ContentHash, &item.Mtime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *VectorRepo) GetEmbeddingHash(ctx context.Context, itemID string) (string, bool, error) {
	const query = `SELECT content_hash FROM library_embeddings WHERE item_id = $1`
	var hash string
	if err := r.db.QueryRowContext(ctx, query, itemID).Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return hash, true, nil
}

func itemMetadata(contentType, audienceType, tagsJSON string) map[string]string {
	meta := map[string]string{}
	if contentType != "" {
		meta["content_type"] = contentType
	}
	if audienceType != "" {
		meta["audience_type"] = audienceType
	}
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err == nil && len(tags) > 0 {
		data, _ := json.Marshal(tags)
		meta["tags"] = string(data)
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
