// Package access decides whether a Telegram account may run moderation
// actions. The configured admin chat id is always allowed; everyone else
// is checked against the stored role.
package access

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

type roleStore interface {
	FindRoleByTelegramID(ctx context.Context, telegramID int64) (enums.Role, error)
}

type Service struct {
	roles       roleStore
	adminChatID int64
	logger      *zap.Logger
}

func NewService(roles roleStore, adminChatID int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{roles: roles, adminChatID: adminChatID, logger: logger}
}

// CheckAccess reports whether the actor may moderate. Unknown accounts
// are denied without error; storage failures are returned so callers can
// distinguish "no" from "could not tell".
func (s *Service) CheckAccess(ctx context.Context, actorTelegramID int64) (bool, error) {
	if s.adminChatID != 0 && actorTelegramID == s.adminChatID {
		return true, nil
	}

	role, err := s.roles.FindRoleByTelegramID(ctx, actorTelegramID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			s.logger.Debug("access denied for unknown account", zap.Int64("telegram_id", actorTelegramID))
			return false, nil
		}
		return false, fmt.Errorf("check access for %d: %w", actorTelegramID, err)
	}

	return role.CanModerate(), nil
}
