// Package users handles account registration, WebApp sessions and the
// cached profile read path.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

const profileCacheNamespace = "user"

var (
	// ErrUserBlocked marks a deactivated account trying to register.
	ErrUserBlocked = errors.New("user blocked")
	// ErrInvalidInitData marks WebApp init data that fails signature or
	// expiry validation.
	ErrInvalidInitData = errors.New("invalid init data")
)

type UserStore interface {
	Upsert(ctx context.Context, params postgres.UpsertUserParams) (model.User, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (postgres.ProfileWithUser, error)
}

type SessionStore interface {
	Create(ctx context.Context, userID int64, initData string, ttl time.Duration) (model.Session, error)
	Close(ctx context.Context, sessionID string) (model.Session, error)
}

// AvatarFetcher resolves a user's current Telegram avatar as a data URL.
type AvatarFetcher interface {
	UserAvatarDataURL(ctx context.Context, telegramID int64) (string, error)
}

type Cache interface {
	Get(ctx context.Context, namespace, key string, ttl time.Duration) (json.RawMessage, bool)
	Set(ctx context.Context, namespace, key string, data json.RawMessage) error
	Invalidate(ctx context.Context, namespace, key string) error
}

type Deps struct {
	Users    UserStore
	Profiles ProfileStore
	Sessions SessionStore
	Avatars  AvatarFetcher
	Cache    Cache

	// BotToken enables init data validation; empty skips it.
	BotToken       string
	SessionTTL     time.Duration
	InitDataMaxAge time.Duration
	ProfileTTL     time.Duration

	Logger *zap.Logger
}

type Service struct {
	users    UserStore
	profiles ProfileStore
	sessions SessionStore
	avatars  AvatarFetcher
	cache    Cache

	botToken       string
	sessionTTL     time.Duration
	initDataMaxAge time.Duration
	profileTTL     time.Duration

	logger *zap.Logger
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	if deps.InitDataMaxAge <= 0 {
		deps.InitDataMaxAge = 24 * time.Hour
	}
	return &Service{
		users:          deps.Users,
		profiles:       deps.Profiles,
		sessions:       deps.Sessions,
		avatars:        deps.Avatars,
		cache:          deps.Cache,
		botToken:       deps.BotToken,
		sessionTTL:     deps.SessionTTL,
		initDataMaxAge: deps.InitDataMaxAge,
		profileTTL:     deps.ProfileTTL,
		logger:         deps.Logger,
	}
}

type AddParams struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	Avatar       string
	LanguageCode string
	IsPremium    bool
	InitData     string
}

type AddResult struct {
	User    model.User
	Session model.Session
}

// Add registers or refreshes the account and opens a fresh WebApp session.
// When the caller sends no avatar the current Telegram photo is fetched;
// a fetch failure degrades to an empty avatar rather than failing the call.
func (s *Service) Add(ctx context.Context, params AddParams) (AddResult, error) {
	if params.InitData != "" && s.botToken != "" {
		if err := initdata.Validate(params.InitData, s.botToken, s.initDataMaxAge); err != nil {
			return AddResult{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
		}
	}

	avatar := params.Avatar
	if avatar == "" && s.avatars != nil {
		fetched, err := s.avatars.UserAvatarDataURL(ctx, params.TelegramID)
		if err != nil {
			s.logger.Warn("failed to fetch telegram avatar", zap.Error(err), zap.Int64("telegram_id", params.TelegramID))
		} else {
			avatar = fetched
		}
	}

	user, err := s.users.Upsert(ctx, postgres.UpsertUserParams{
		TelegramID:   params.TelegramID,
		Username:     params.Username,
		Avatar:       avatar,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		LanguageCode: params.LanguageCode,
		IsPremium:    params.IsPremium,
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("register user: %w", err)
	}

	if !user.IsActive {
		return AddResult{}, ErrUserBlocked
	}

	session, err := s.sessions.Create(ctx, user.ID, params.InitData, s.sessionTTL)
	if err != nil {
		return AddResult{}, fmt.Errorf("open webapp session: %w", err)
	}

	return AddResult{User: user, Session: session}, nil
}

// CloseSession expires the session immediately. Unknown ids surface
// postgres.ErrSessionNotFound.
func (s *Service) CloseSession(ctx context.Context, sessionID string) (model.Session, error) {
	session, err := s.sessions.Close(ctx, sessionID)
	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			return model.Session{}, err
		}
		return model.Session{}, fmt.Errorf("close session: %w", err)
	}
	return session, nil
}

// GetProfile returns the user's profile, serving a fresh cache snapshot
// when one exists. Cache failures never fail the read.
func (s *Service) GetProfile(ctx context.Context, userID int64) (postgres.ProfileWithUser, error) {
	key := strconv.FormatInt(userID, 10)

	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, profileCacheNamespace, key, s.profileTTL); ok {
			var cached postgres.ProfileWithUser
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			s.logger.Warn("dropping malformed profile cache entry", zap.Int64("user_id", userID))
			_ = s.cache.Invalidate(ctx, profileCacheNamespace, key)
		}
	}

	result, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return postgres.ProfileWithUser{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, profileCacheNamespace, key, raw); err != nil {
				s.logger.Warn("failed to cache profile snapshot", zap.Error(err), zap.Int64("user_id", userID))
			}
		}
	}

	return result, nil
}
