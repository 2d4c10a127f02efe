// Package profiles handles profile submission and the moderation
// approve/reject pair.
package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

const profileCacheNamespace = "user"

type ProfileStore interface {
	Upsert(ctx context.Context, params postgres.UpsertProfileParams) (postgres.ProfileWithUser, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (postgres.ProfileWithUser, error)
	Approve(ctx context.Context, userID int64) error
}

type Cache interface {
	Get(ctx context.Context, namespace, key string, ttl time.Duration) (json.RawMessage, bool)
	Set(ctx context.Context, namespace, key string, data json.RawMessage) error
	Invalidate(ctx context.Context, namespace, key string) error
}

// Notifier is the outbound notification slice this service triggers.
// All methods are fire and forget.
type Notifier interface {
	ProfileSubmitted(ctx context.Context, profile model.Profile, user model.UserRef)
	ProfileApproved(ctx context.Context, submitterTelegramID int64)
	ProfileRejected(ctx context.Context, submitterTelegramID int64)
}

type Service struct {
	profiles ProfileStore
	cache    Cache
	notifier Notifier
	logger   *zap.Logger
}

func NewService(profiles ProfileStore, cache Cache, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profiles: profiles, cache: cache, notifier: notifier, logger: logger}
}

// Upsert stores the submitted profile fields, drops any cached snapshot
// and alerts the moderation chat. The write always lands unapproved.
func (s *Service) Upsert(ctx context.Context, params postgres.UpsertProfileParams) (postgres.ProfileWithUser, error) {
	result, err := s.profiles.Upsert(ctx, params)
	if err != nil {
		return postgres.ProfileWithUser{}, err
	}

	s.invalidate(ctx, result.Profile.UserID)

	if s.notifier != nil {
		s.notifier.ProfileSubmitted(ctx, result.Profile, result.User)
	}

	return result, nil
}

// Approve marks the profile approved and notifies the submitter. The
// profile is addressed by the owner's Telegram id, the only identifier
// the moderation alert carries.
func (s *Service) Approve(ctx context.Context, telegramID int64) (postgres.ProfileWithUser, error) {
	result, err := s.profiles.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return postgres.ProfileWithUser{}, err
	}

	if err := s.profiles.Approve(ctx, result.Profile.UserID); err != nil {
		return postgres.ProfileWithUser{}, fmt.Errorf("approve profile of %d: %w", telegramID, err)
	}
	result.Profile.IsApproved = true

	s.invalidate(ctx, result.Profile.UserID)

	if s.notifier != nil {
		s.notifier.ProfileApproved(ctx, result.User.TelegramID)
	}

	return result, nil
}

// Reject notifies the submitter that the profile needs another pass. The
// row itself is untouched: every submission already lands unapproved, so
// rejection carries no state change.
func (s *Service) Reject(ctx context.Context, telegramID int64) (postgres.ProfileWithUser, error) {
	result, err := s.profiles.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return postgres.ProfileWithUser{}, err
	}

	if s.notifier != nil {
		s.notifier.ProfileRejected(ctx, result.User.TelegramID)
	}

	return result, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	key := strconv.FormatInt(userID, 10)
	if err := s.cache.Invalidate(ctx, profileCacheNamespace, key); err != nil {
		s.logger.Warn("failed to invalidate profile snapshot", zap.Error(err), zap.Int64("user_id", userID))
	}
}
