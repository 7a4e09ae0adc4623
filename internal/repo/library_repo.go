package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
)

type LibraryRepo struct {
	db *sqlx.DB
}

func NewLibraryRepo(db *sqlx.DB) *LibraryRepo {
	return &LibraryRepo{db: db}
}

func (r *LibraryRepo) Save(ctx context.Context, item *model.LibraryItem) error {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO library_items
			(id, corpus, title, content, content_type, audience_type, tags, content_hash, state, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			corpus = EXCLUDED.corpus,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			content_type = EXCLUDED.content_type,
			audience_type = EXCLUDED.audience_type,
			tags = EXCLUDED.tags,
			content_hash = EXCLUDED.content_hash,
			state = EXCLUDED.state,
			mtime = EXCLUDED.mtime
	`
	_, err = r.db.ExecContext(ctx, query,
		item.ID, string(item.Corpus), item.Title, item.Content, item.ContentType,
		item.AudienceType, string(tagsJSON), item.ContentHash, item.State, item.Ctime, item.Mtime)
	return err
}

func (r *LibraryRepo) Get(ctx context.Context, id string) (*model.LibraryItem, error) {
	where := map[string]interface{}{
		"id":    id,
		"state": model.LibraryItemStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("library_items", where, libraryColumns())
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, r.db.Rebind(sqlStr), args...)
	item, err := scanLibraryItem(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *LibraryRepo) List(ctx context.Context, corpus model.Corpus, offset, limit uint) ([]model.LibraryItem, error) {
	where := map[string]interface{}{
		"state":    model.LibraryItemStateNormal,
		"_orderby": "mtime desc",
		"_limit":   []uint{offset, limit},
	}
	if corpus != "" {
		where["corpus"] = string(corpus)
	}
	sqlStr, args, err := builder.BuildSelect("library_items", where, libraryColumns())
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.LibraryItem
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *LibraryRepo) Delete(ctx context.Context, id string, mtime int64) error {
	update := map[string]interface{}{
		"state": model.LibraryItemStateDeleted,
		"mtime": mtime,
	}
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildUpdate("library_items", where, update)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func libraryColumns() []string {
	return []string{"id", "corpus", "title", "content", "content_type", "audience_type", "tags", "content_hash", "state", "ctime", "mtime"}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLibraryItem(row rowScanner) (*model.LibraryItem, error) {
	var (
		item     model.LibraryItem
		tagsJSON string
	)
	if err := row.Scan(&item.ID, &item.Corpus, &item.Title, &item.Content, &item.ContentType,
		&item.AudienceType, &tagsJSON, &item.ContentHash, &item.State, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		item.Tags = nil
	}
	return &item, nil
}
