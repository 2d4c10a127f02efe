// Package cleanup purges WebApp session rows whose expiry is past the
// retention window. Expired sessions are kept for a while as an audit
// trail of who was signed in when; this job trims the tail.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type sessionPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Job struct {
	sessions  sessionPurger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewSessionCleanupJob(sessions sessionPurger, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		sessions:  sessions,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the cutoff clock. Tests use it to move the
// retention window without sleeping.
func (j *Job) WithClock(now func() time.Time) *Job {
	if now != nil {
		j.now = now
	}
	return j
}

func (j *Job) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	rows, err := j.sessions.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup webapp sessions: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup webapp sessions completed", zap.Int64("deleted", rows))
	}

	return nil
}
