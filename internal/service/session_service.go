package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/repo"
)

type SessionService struct {
	sessions *repo.SessionRepo
}

func NewSessionService(sessions *repo.SessionRepo) *SessionService {
	return &SessionService{sessions: sessions}
}

func (s *SessionService) Create(ctx context.Context, prefs model.Preferences) (*model.Session, error) {
	now := time.Now().Unix()
	session := &model.Session{
		ID:          newID(),
		Preferences: prefs,
		State:       model.SessionStateActive,
		Ctime:       now,
		LastActive:  now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions.Get(ctx, id)
}

func (s *SessionService) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error {
	return s.sessions.UpdatePreferences(ctx, id, prefs)
}

func (s *SessionService) History(ctx context.Context, id string) ([]model.AnswerRecord, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.sessions.ListAnswers(ctx, id)
}

// AppendAnswer stores one answer in the session history and refreshes the
// session's activity time.
func (s *SessionService) AppendAnswer(ctx context.Context, record *model.AnswerRecord) error {
	if _, err := s.sessions.Get(ctx, record.SessionID); err != nil {
		return err
	}
	if err := s.sessions.AppendAnswer(ctx, record); err != nil {
		return err
	}
	return s.sessions.Touch(ctx, record.SessionID, time.Now().Unix())
}

func (s *SessionService) CleanupInactive(ctx context.Context, maxIdle time.Duration) error {
	cutoff := time.Now().Add(-maxIdle).Unix()
	removed, err := s.sessions.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired sessions removed", zap.Int64("count", removed))
	}
	return nil
}
