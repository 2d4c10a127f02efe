package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leisureprog/dead-ddos/internal/domain/model"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type UpsertProfileParams struct {
	UserID   int64
	Nickname string
	Age      int
	Telegram string
	Skills   string
}

// ProfileWithUser pairs a profile with its owner's reference fields, the
// shape both the upsert response and the moderation alert need.
type ProfileWithUser struct {
	Profile model.Profile
	User    model.UserRef
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Upsert writes the profile fields inside one transaction, unconditionally
// dropping is_approved to false: a re-submission invalidates any prior
// approval until a moderator signs off again.
func (r *ProfileRepo) Upsert(ctx context.Context, params UpsertProfileParams) (ProfileWithUser, error) {
	if r.pool == nil {
		return ProfileWithUser{}, fmt.Errorf("postgres pool is nil")
	}
	if params.UserID <= 0 {
		return ProfileWithUser{}, fmt.Errorf("invalid user id")
	}
	if strings.TrimSpace(params.Nickname) == "" {
		return ProfileWithUser{}, fmt.Errorf("profile nickname is required")
	}

	var result ProfileWithUser
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		user, err := findUserRefByIDTx(ctx, tx, params.UserID)
		if err != nil {
			return err
		}
		result.User = user

		err = tx.QueryRow(ctx, `
INSERT INTO user_profiles (user_id, nickname, age, telegram, skills, is_approved, last_edited, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	nickname = EXCLUDED.nickname,
	age = EXCLUDED.age,
	telegram = EXCLUDED.telegram,
	skills = EXCLUDED.skills,
	is_approved = FALSE,
	last_edited = NOW()
RETURNING user_id, nickname, age, telegram, skills, is_approved, last_edited, created_at
`, params.UserID, strings.TrimSpace(params.Nickname), params.Age, strings.TrimSpace(params.Telegram), params.Skills).Scan(
			&result.Profile.UserID, &result.Profile.Nickname, &result.Profile.Age, &result.Profile.Telegram,
			&result.Profile.Skills, &result.Profile.IsApproved, &result.Profile.LastEdited, &result.Profile.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert user profile: %w", err)
		}

		return nil
	})
	if err != nil {
		return ProfileWithUser{}, err
	}

	return result, nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID int64) (ProfileWithUser, error) {
	if r.pool == nil {
		return ProfileWithUser{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return ProfileWithUser{}, fmt.Errorf("invalid user id")
	}

	var result ProfileWithUser
	err := r.pool.QueryRow(ctx, `
SELECT p.user_id, p.nickname, p.age, p.telegram, p.skills, p.is_approved, p.last_edited, p.created_at,
	u.id, u.telegram_id, u.username, u.first_name, u.last_name
FROM user_profiles p
JOIN users u ON u.id = p.user_id
WHERE p.user_id = $1
`, userID).Scan(
		&result.Profile.UserID, &result.Profile.Nickname, &result.Profile.Age, &result.Profile.Telegram,
		&result.Profile.Skills, &result.Profile.IsApproved, &result.Profile.LastEdited, &result.Profile.CreatedAt,
		&result.User.ID, &result.User.TelegramID, &result.User.Username, &result.User.FirstName, &result.User.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileWithUser{}, ErrProfileNotFound
		}
		return ProfileWithUser{}, fmt.Errorf("get user profile: %w", err)
	}

	return result, nil
}

// GetByTelegramID loads a profile through the owner's Telegram id. The
// moderation callbacks address profiles this way because the rendered
// alert only carries the platform id, not the internal row id.
func (r *ProfileRepo) GetByTelegramID(ctx context.Context, telegramID int64) (ProfileWithUser, error) {
	if r.pool == nil {
		return ProfileWithUser{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return ProfileWithUser{}, fmt.Errorf("invalid telegram id")
	}

	var result ProfileWithUser
	err := r.pool.QueryRow(ctx, `
SELECT p.user_id, p.nickname, p.age, p.telegram, p.skills, p.is_approved, p.last_edited, p.created_at,
	u.id, u.telegram_id, u.username, u.first_name, u.last_name
FROM user_profiles p
JOIN users u ON u.id = p.user_id
WHERE u.telegram_id = $1
`, telegramID).Scan(
		&result.Profile.UserID, &result.Profile.Nickname, &result.Profile.Age, &result.Profile.Telegram,
		&result.Profile.Skills, &result.Profile.IsApproved, &result.Profile.LastEdited, &result.Profile.CreatedAt,
		&result.User.ID, &result.User.TelegramID, &result.User.Username, &result.User.FirstName, &result.User.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileWithUser{}, ErrProfileNotFound
		}
		return ProfileWithUser{}, fmt.Errorf("get user profile by telegram_id: %w", err)
	}

	return result, nil
}

// Approve flips is_approved on and stamps the edit time. It never creates
// a row: approving an absent profile is ErrProfileNotFound.
func (r *ProfileRepo) Approve(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE user_profiles
SET is_approved = TRUE, last_edited = NOW()
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("approve user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}
