package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leisureprog/dead-ddos/internal/domain/model"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create expires every unexpired session of the user and inserts the new
// one in a single transaction, so at most one valid session per user holds
// even under concurrent creates.
func (r *SessionRepo) Create(ctx context.Context, userID int64, initData string, ttl time.Duration) (model.Session, error) {
	if r.pool == nil {
		return model.Session{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.Session{}, fmt.Errorf("invalid user id")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	var session model.Session
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
UPDATE webapp_sessions
SET expires_at = NOW()
WHERE user_id = $1 AND expires_at > NOW()
`, userID); err != nil {
			return fmt.Errorf("expire active sessions: %w", err)
		}

		err := tx.QueryRow(ctx, `
INSERT INTO webapp_sessions (id, user_id, init_data, expires_at, created_at)
VALUES ($1, $2, $3, NOW() + $4::INTERVAL, NOW())
RETURNING id, user_id, init_data, expires_at, created_at
`, uuid.NewString(), userID, initData, ttl.String()).Scan(
			&session.ID, &session.UserID, &session.InitData, &session.ExpiresAt, &session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create webapp session: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.Session{}, err
	}

	return session, nil
}

// Close expires a session immediately. Closing an unknown session is
// ErrSessionNotFound.
func (r *SessionRepo) Close(ctx context.Context, sessionID string) (model.Session, error) {
	if r.pool == nil {
		return model.Session{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		return model.Session{}, ErrSessionNotFound
	}

	var session model.Session
	err := r.pool.QueryRow(ctx, `
UPDATE webapp_sessions
SET expires_at = NOW()
WHERE id = $1
RETURNING id, user_id, init_data, expires_at, created_at
`, sessionID).Scan(&session.ID, &session.UserID, &session.InitData, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("close webapp session: %w", err)
	}

	return session, nil
}

func (r *SessionRepo) CountActive(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM webapp_sessions
WHERE user_id = $1 AND expires_at > NOW()
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}

	return count, nil
}

// DeleteExpiredBefore purges sessions whose expiry is older than the
// cutoff. Used by the retention cleanup job.
func (r *SessionRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM webapp_sessions
WHERE expires_at < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
