package job

import (
	"context"
	"time"

	"github.com/readmate/readmate/internal/service"
)

type SessionCleanupJob struct {
	sessions *service.SessionService
	maxIdle  time.Duration
}

func NewSessionCleanupJob(sessions *service.SessionService, maxIdle time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions, maxIdle: maxIdle}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	maxIdle := j.maxIdle
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	return j.sessions.CleanupInactive(ctx, maxIdle)
}
