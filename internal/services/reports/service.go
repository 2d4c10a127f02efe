// Package reports handles report submission and the resolve/reject
// moderation pair.
package reports

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

// ErrPermissionDenied marks a moderation attempt by an account without a
// moderator role.
var ErrPermissionDenied = errors.New("permission denied")

type ReportStore interface {
	Create(ctx context.Context, params postgres.CreateReportParams) (model.Report, error)
	ApplyTransition(ctx context.Context, reportID, adminTelegramID int64, newStatus enums.ReportStatus, comment string) (postgres.ReportTransition, error)
}

type UserStore interface {
	FindRefByID(ctx context.Context, userID int64) (model.UserRef, error)
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, actorTelegramID int64) (bool, error)
}

type Notifier interface {
	ReportReceived(ctx context.Context, report model.Report, submitterInfo string)
	ReportRejected(ctx context.Context, submitterTelegramID, reportID int64)
}

type Service struct {
	reports  ReportStore
	users    UserStore
	access   AccessChecker
	notifier Notifier
	logger   *zap.Logger
}

func NewService(reports ReportStore, users UserStore, access AccessChecker, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reports: reports, users: users, access: access, notifier: notifier, logger: logger}
}

// Create stores a new pending report and alerts the moderation chat.
// Reports may be anonymous; the alert then carries the client metadata
// instead of an account reference.
func (s *Service) Create(ctx context.Context, params postgres.CreateReportParams) (model.Report, error) {
	report, err := s.reports.Create(ctx, params)
	if err != nil {
		return model.Report{}, err
	}

	if s.notifier != nil {
		s.notifier.ReportReceived(ctx, report, s.submitterInfo(ctx, report))
	}

	return report, nil
}

func (s *Service) submitterInfo(ctx context.Context, report model.Report) string {
	if report.UserID == nil {
		info := ""
		if report.IPAddress != "" {
			info = "IP: " + report.IPAddress
		}
		if report.UserAgent != "" {
			if info != "" {
				info += ", "
			}
			info += "UA: " + report.UserAgent
		}
		return info
	}

	if s.users == nil {
		return ""
	}
	ref, err := s.users.FindRefByID(ctx, *report.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve report submitter", zap.Error(err), zap.Int64("user_id", *report.UserID))
		return ""
	}
	return fmt.Sprintf("Пользователь: %s (ID: %d)", ref.DisplayName(), ref.TelegramID)
}

type ProcessParams struct {
	ReportID        int64
	ActorTelegramID int64
	Action          callback.Action
	Comment         string
}

// Process runs one moderation action through the access gate and applies
// the transition atomically. Rejection notifies the submitter; resolution
// stays silent. Terminal reports surface postgres.ErrReportProcessed.
func (s *Service) Process(ctx context.Context, params ProcessParams) (postgres.ReportTransition, error) {
	allowed, err := s.access.CheckAccess(ctx, params.ActorTelegramID)
	if err != nil {
		return postgres.ReportTransition{}, fmt.Errorf("check moderation access: %w", err)
	}
	if !allowed {
		return postgres.ReportTransition{}, ErrPermissionDenied
	}

	newStatus, err := statusForAction(params.Action)
	if err != nil {
		return postgres.ReportTransition{}, err
	}

	transition, err := s.reports.ApplyTransition(ctx, params.ReportID, params.ActorTelegramID, newStatus, params.Comment)
	if err != nil {
		return postgres.ReportTransition{}, err
	}

	if s.notifier != nil && newStatus == enums.ReportStatusRejected && !transition.Anonymous && transition.Submitter.TelegramID != 0 {
		s.notifier.ReportRejected(ctx, transition.Submitter.TelegramID, transition.Report.ID)
	}

	return transition, nil
}

func statusForAction(action callback.Action) (enums.ReportStatus, error) {
	switch action {
	case callback.ActionResolve:
		return enums.ReportStatusResolved, nil
	case callback.ActionReject:
		return enums.ReportStatusRejected, nil
	default:
		return "", fmt.Errorf("unsupported report action %q", action)
	}
}
