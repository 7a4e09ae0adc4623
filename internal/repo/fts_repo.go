package repo

import (
	"context"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/advisorly/fincopy/internal/model"
)

// FTSRepo is the lexical fallback index, backed by postgres full-text search
// over the same library_items rows the vector index covers.
type FTSRepo struct {
	db *sqlx.DB
}

func NewFTSRepo(db *sqlx.DB) *FTSRepo {
	return &FTSRepo{db: db}
}

func (r *FTSRepo) Search(ctx context.Context, corpus model.Corpus, query string, limit int) ([]model.ContextItem, error) {
	cleaned := sanitizeQuery(query)
	if cleaned == "" {
		return []model.ContextItem{}, nil
	}
	const sqlQuery = `
		SELECT id, corpus, content, content_type, audience_type, tags
		FROM library_items
		WHERE corpus = $1 AND state = $2
		  AND search_tsv @@ plainto_tsquery('english', $3)
		ORDER BY ts_rank(search_tsv, plainto_tsquery('english', $3)) DESC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, sqlQuery, string(corpus), model.LibraryItemStateNormal, cleaned, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.ContextItem, 0, limit)
	for rows.Next() {
		var (
			item         model.ContextItem
			contentType  string
			audienceType string
			tagsJSON     string
		)
		if err := rows.Scan(&item.ID, &item.Corpus, &item.Text, &contentType, &audienceType, &tagsJSON); err != nil {
			return nil, err
		}
		item.Metadata = itemMetadata(contentType, audienceType, tagsJSON)
		items = append(items, item)
	}
	return items, rows.Err()
}

func sanitizeQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
