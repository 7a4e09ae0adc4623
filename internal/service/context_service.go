package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/advisorly/fincopy/internal/model"
	appErr "github.com/advisorly/fincopy/internal/pkg/errors"
	"github.com/advisorly/fincopy/internal/repo"
)

// ContextService supplies per-session conversation history and attached
// document summaries, and records exchanges after generation. The generation
// core only reads; writes happen from the handler layer.
type ContextService struct {
	sessions *repo.SessionRepo
	maxTurns uint
}

func NewContextService(sessions *repo.SessionRepo, maxTurns uint) *ContextService {
	if maxTurns == 0 {
		maxTurns = 200
	}
	return &ContextService{sessions: sessions, maxTurns: maxTurns}
}

func (s *ContextService) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.sessions.ListMessages(ctx, sessionID, s.maxTurns)
}

func (s *ContextService) Documents(ctx context.Context, sessionID string) ([]model.SessionDocument, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.sessions.ListDocuments(ctx, sessionID)
}

func (s *ContextService) CreateSession(ctx context.Context, title string) (*model.Session, error) {
	now := time.Now().UnixMilli()
	session := &model.Session{
		ID:    uuid.NewString(),
		Title: title,
		Ctime: now,
		Mtime: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ContextService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, appErr.ErrInvalid
	}
	return s.sessions.Get(ctx, sessionID)
}

// RecordExchange appends the user request and the generated reply to the
// session. Best effort: a write failure only loses history, so it is logged
// rather than failing the response.
func (s *ContextService) RecordExchange(ctx context.Context, sessionID, userText, assistantText string) {
	if sessionID == "" {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sessionID))
	now := time.Now().UnixMilli()
	turns := []model.Message{
		{ID: uuid.NewString(), SessionID: sessionID, Role: model.RoleUser, Content: userText, Ctime: now},
		{ID: uuid.NewString(), SessionID: sessionID, Role: model.RoleAssistant, Content: assistantText, Ctime: now + 1},
	}
	for _, turn := range turns {
		if err := s.sessions.AppendMessage(ctx, &turn); err != nil {
			logger.Warn("failed to record session turn", zap.Error(err))
			return
		}
	}
	if err := s.sessions.Touch(ctx, sessionID, now); err != nil {
		logger.Warn("failed to touch session", zap.Error(err))
	}
}

func (s *ContextService) AttachDocument(ctx context.Context, sessionID, name, summary string, tokenEstimate int) (*model.SessionDocument, error) {
	if sessionID == "" || summary == "" {
		return nil, appErr.ErrInvalid
	}
	doc := &model.SessionDocument{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Name:          name,
		Summary:       summary,
		TokenEstimate: tokenEstimate,
		Ctime:         time.Now().UnixMilli(),
	}
	if err := s.sessions.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
