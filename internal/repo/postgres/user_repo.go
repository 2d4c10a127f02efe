package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UpsertUserParams struct {
	TelegramID   int64
	Username     string
	Avatar       string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Upsert creates the user on first contact and refreshes display attributes
// on every re-contact. Role and is_active are never touched by the upsert.
func (r *UserRepo) Upsert(ctx context.Context, params UpsertUserParams) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if params.TelegramID <= 0 {
		return model.User{}, fmt.Errorf("invalid telegram_id")
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, username, avatar, first_name, last_name, language_code, is_premium, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'NORMAL', TRUE, NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
	username = EXCLUDED.username,
	avatar = EXCLUDED.avatar,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	language_code = EXCLUDED.language_code,
	is_premium = EXCLUDED.is_premium,
	updated_at = NOW()
RETURNING id, telegram_id, username, avatar, first_name, last_name, language_code, is_premium, role, is_active, created_at, updated_at
`, params.TelegramID, strings.TrimSpace(params.Username), params.Avatar, params.FirstName, params.LastName, params.LanguageCode, params.IsPremium).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.Avatar, &user.FirstName, &user.LastName,
		&user.LanguageCode, &user.IsPremium, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user by telegram_id: %w", err)
	}

	if user.Role == "" {
		user.Role = enums.RoleNormal
	}

	return user, nil
}

func (r *UserRepo) FindRoleByTelegramID(ctx context.Context, telegramID int64) (enums.Role, error) {
	if r.pool == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return "", fmt.Errorf("invalid telegram_id")
	}

	var role enums.Role
	err := r.pool.QueryRow(ctx, `
SELECT role
FROM users
WHERE telegram_id = $1
`, telegramID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("find user role by telegram_id: %w", err)
	}

	return role, nil
}

func (r *UserRepo) FindRefByID(ctx context.Context, userID int64) (model.UserRef, error) {
	if r.pool == nil {
		return model.UserRef{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.UserRef{}, fmt.Errorf("invalid user id")
	}

	var ref model.UserRef
	err := r.pool.QueryRow(ctx, `
SELECT id, telegram_id, username, first_name, last_name
FROM users
WHERE id = $1
`, userID).Scan(&ref.ID, &ref.TelegramID, &ref.Username, &ref.FirstName, &ref.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserRef{}, ErrUserNotFound
		}
		return model.UserRef{}, fmt.Errorf("find user by id: %w", err)
	}

	return ref, nil
}

func findUserRefByIDTx(ctx context.Context, tx pgx.Tx, userID int64) (model.UserRef, error) {
	var ref model.UserRef
	err := tx.QueryRow(ctx, `
SELECT id, telegram_id, username, first_name, last_name
FROM users
WHERE id = $1
`, userID).Scan(&ref.ID, &ref.TelegramID, &ref.Username, &ref.FirstName, &ref.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserRef{}, ErrUserNotFound
		}
		return model.UserRef{}, fmt.Errorf("find user by id in tx: %w", err)
	}
	return ref, nil
}

// findAdminIDTx resolves a moderator's internal id from the Telegram id
// carried by the callback, inside the transition transaction.
func findAdminIDTx(ctx context.Context, tx pgx.Tx, telegramID int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
SELECT id
FROM users
WHERE telegram_id = $1
`, telegramID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("find admin by telegram_id in tx: %w", err)
	}
	return id, nil
}
