// Package questions handles question submission, the moderation workflow
// transitions and the cached read path.
package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

const questionCacheNamespace = "question"

// ErrPermissionDenied marks a moderation attempt by an account without a
// moderator role. No state is touched when it fires.
var ErrPermissionDenied = errors.New("permission denied")

type QuestionStore interface {
	Create(ctx context.Context, params postgres.CreateQuestionParams) (model.Question, error)
	ApplyTransition(ctx context.Context, questionID, adminTelegramID int64, newStatus enums.QuestionStatus, answer *string, comment string) (postgres.QuestionTransition, error)
	GetByID(ctx context.Context, questionID int64) (model.Question, error)
	List(ctx context.Context, filter postgres.QuestionFilter) ([]model.Question, int, error)
	ListLogs(ctx context.Context, questionID int64) ([]model.AuditEntry, error)
}

type UserStore interface {
	FindRefByID(ctx context.Context, userID int64) (model.UserRef, error)
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, actorTelegramID int64) (bool, error)
}

type Notifier interface {
	QuestionReceived(ctx context.Context, q model.Question, submitter model.UserRef)
	QuestionOutcome(ctx context.Context, submitterTelegramID int64, q model.Question, status enums.QuestionStatus)
}

type Cache interface {
	Get(ctx context.Context, namespace, key string, ttl time.Duration) (json.RawMessage, bool)
	Set(ctx context.Context, namespace, key string, data json.RawMessage) error
	Invalidate(ctx context.Context, namespace, key string) error
}

type Service struct {
	questions QuestionStore
	users     UserStore
	access    AccessChecker
	notifier  Notifier
	cache     Cache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

type Deps struct {
	Questions QuestionStore
	Users     UserStore
	Access    AccessChecker
	Notifier  Notifier
	Cache     Cache
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		questions: deps.Questions,
		users:     deps.Users,
		access:    deps.Access,
		notifier:  deps.Notifier,
		cache:     deps.Cache,
		cacheTTL:  deps.CacheTTL,
		logger:    deps.Logger,
	}
}

// Create stores a new pending question and alerts the moderation chat.
func (s *Service) Create(ctx context.Context, params postgres.CreateQuestionParams) (model.Question, error) {
	q, err := s.questions.Create(ctx, params)
	if err != nil {
		return model.Question{}, err
	}

	if s.notifier != nil {
		submitter := model.UserRef{ID: q.UserID}
		if s.users != nil {
			ref, err := s.users.FindRefByID(ctx, q.UserID)
			if err != nil {
				s.logger.Warn("failed to resolve question submitter", zap.Error(err), zap.Int64("user_id", q.UserID))
			} else {
				submitter = ref
			}
		}
		s.notifier.QuestionReceived(ctx, q, submitter)
	}

	return q, nil
}

type ProcessParams struct {
	QuestionID      int64
	ActorTelegramID int64
	Action          callback.Action
	Answer          string
	Comment         string
}

// Process runs one moderation action through the access gate, applies the
// transition atomically and notifies the submitter after the commit.
// Terminal questions surface postgres.ErrQuestionProcessed untouched.
func (s *Service) Process(ctx context.Context, params ProcessParams) (postgres.QuestionTransition, error) {
	allowed, err := s.access.CheckAccess(ctx, params.ActorTelegramID)
	if err != nil {
		return postgres.QuestionTransition{}, fmt.Errorf("check moderation access: %w", err)
	}
	if !allowed {
		return postgres.QuestionTransition{}, ErrPermissionDenied
	}

	newStatus, err := statusForAction(params.Action)
	if err != nil {
		return postgres.QuestionTransition{}, err
	}

	var answer *string
	if trimmed := strings.TrimSpace(params.Answer); trimmed != "" {
		answer = &trimmed
	}

	transition, err := s.questions.ApplyTransition(ctx, params.QuestionID, params.ActorTelegramID, newStatus, answer, params.Comment)
	if err != nil {
		return postgres.QuestionTransition{}, err
	}

	s.invalidate(ctx, params.QuestionID)

	if s.notifier != nil && transition.Submitter.TelegramID != 0 {
		s.notifier.QuestionOutcome(ctx, transition.Submitter.TelegramID, transition.Question, newStatus)
	}

	return transition, nil
}

func statusForAction(action callback.Action) (enums.QuestionStatus, error) {
	switch action {
	case callback.ActionAnswer:
		return enums.QuestionStatusAnswered, nil
	case callback.ActionReject:
		return enums.QuestionStatusRejected, nil
	case callback.ActionArchive:
		return enums.QuestionStatusArchived, nil
	default:
		return "", fmt.Errorf("unsupported question action %q", action)
	}
}

func (s *Service) List(ctx context.Context, filter postgres.QuestionFilter) ([]model.Question, int, error) {
	return s.questions.List(ctx, filter)
}

// QuestionDetails is a question with its full moderation history.
type QuestionDetails struct {
	Question model.Question     `json:"question"`
	Logs     []model.AuditEntry `json:"logs"`
}

// GetByID returns the question and its audit trail, serving a fresh cache
// snapshot when one exists.
func (s *Service) GetByID(ctx context.Context, questionID int64) (QuestionDetails, error) {
	key := strconv.FormatInt(questionID, 10)

	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, questionCacheNamespace, key, s.cacheTTL); ok {
			var cached QuestionDetails
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			_ = s.cache.Invalidate(ctx, questionCacheNamespace, key)
		}
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return QuestionDetails{}, err
	}
	logs, err := s.questions.ListLogs(ctx, questionID)
	if err != nil {
		return QuestionDetails{}, err
	}

	details := QuestionDetails{Question: q, Logs: logs}

	if s.cache != nil {
		if raw, err := json.Marshal(details); err == nil {
			if err := s.cache.Set(ctx, questionCacheNamespace, key, raw); err != nil {
				s.logger.Warn("failed to cache question snapshot", zap.Error(err), zap.Int64("question_id", questionID))
			}
		}
	}

	return details, nil
}

func (s *Service) invalidate(ctx context.Context, questionID int64) {
	if s.cache == nil {
		return
	}
	key := strconv.FormatInt(questionID, 10)
	if err := s.cache.Invalidate(ctx, questionCacheNamespace, key); err != nil {
		s.logger.Warn("failed to invalidate question snapshot", zap.Error(err), zap.Int64("question_id", questionID))
	}
}
