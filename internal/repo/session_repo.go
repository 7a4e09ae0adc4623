package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *model.Session) error {
	data := map[string]interface{}{
		"id":    session.ID,
		"title": session.Title,
		"ctime": session.Ctime,
		"mtime": session.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("sessions", where, []string{"id", "title", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(sqlStr), args...).
		Scan(&session.ID, &session.Title, &session.Ctime, &session.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"id":         msg.ID,
		"session_id": msg.SessionID,
		"role":       string(msg.Role),
		"content":    msg.Content,
		"ctime":      msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("session_messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

// ListMessages returns the session history oldest first.
func (r *SessionRepo) ListMessages(ctx context.Context, sessionID string, limit uint) ([]model.Message, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"_orderby":   "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("session_messages", where,
		[]string{"id", "session_id", "role", "content", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Ctime); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *SessionRepo) AddDocument(ctx context.Context, doc *model.SessionDocument) error {
	data := map[string]interface{}{
		"id":             doc.ID,
		"session_id":     doc.SessionID,
		"name":           doc.Name,
		"summary":        doc.Summary,
		"token_estimate": doc.TokenEstimate,
		"ctime":          doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("session_documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *SessionRepo) ListDocuments(ctx context.Context, sessionID string) ([]model.SessionDocument, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"_orderby":   "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("session_documents", where,
		[]string{"id", "session_id", "name", "summary", "token_estimate", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.SessionDocument
	for rows.Next() {
		var doc model.SessionDocument
		if err := rows.Scan(&doc.ID, &doc.SessionID, &doc.Name, &doc.Summary, &doc.TokenEstimate, &doc.Ctime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *SessionRepo) Touch(ctx context.Context, sessionID string, mtime int64) error {
	update := map[string]interface{}{"mtime": mtime}
	where := map[string]interface{}{"id": sessionID}
	sqlStr, args, err := builder.BuildUpdate("sessions", where, update)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}
