package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/go-playground/validator/v10"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
	"github.com/leisureprog/dead-ddos/internal/services/questions"
	"github.com/leisureprog/dead-ddos/internal/services/users"
)

type UserService interface {
	Add(ctx context.Context, params users.AddParams) (users.AddResult, error)
	CloseSession(ctx context.Context, sessionID string) (model.Session, error)
	GetProfile(ctx context.Context, userID int64) (postgres.ProfileWithUser, error)
}

type ProfileService interface {
	Upsert(ctx context.Context, params postgres.UpsertProfileParams) (postgres.ProfileWithUser, error)
}

type QuestionService interface {
	Create(ctx context.Context, params postgres.CreateQuestionParams) (model.Question, error)
	List(ctx context.Context, filter postgres.QuestionFilter) ([]model.Question, int, error)
	GetByID(ctx context.Context, questionID int64) (questions.QuestionDetails, error)
}

type ReportService interface {
	Create(ctx context.Context, params postgres.CreateReportParams) (model.Report, error)
}

type PaymentService interface {
	Create(ctx context.Context, params postgres.InsertPaymentEventParams) (model.PaymentEvent, error)
}

// Methods binds the RPC method table to the workflow services. Domain
// failures become result envelopes here; only unexpected errors escape
// to the protocol layer.
type Methods struct {
	Users     UserService
	Profiles  ProfileService
	Questions QuestionService
	Reports   ReportService
	Payments  PaymentService

	validate *validator.Validate
}

func NewMethods(usersSvc UserService, profilesSvc ProfileService, questionsSvc QuestionService, reportsSvc ReportService, paymentsSvc PaymentService) *Methods {
	return &Methods{
		Users:     usersSvc,
		Profiles:  profilesSvc,
		Questions: questionsSvc,
		Reports:   reportsSvc,
		Payments:  paymentsSvc,
		validate:  validator.New(),
	}
}

func (m *Methods) RegisterAll(srv *Server) {
	srv.Register("user.add", m.userAdd)
	srv.Register("user.upsertUserProfile", m.upsertUserProfile)
	srv.Register("user.getUserProfile", m.getUserProfile)
	srv.Register("user.closeWebAppSession", m.closeWebAppSession)
	srv.Register("report.create", m.reportCreate)
	srv.Register("question.create", m.questionCreate)
	srv.Register("question.getQuestions", m.getQuestions)
	srv.Register("question.getQuestionById", m.getQuestionByID)
	srv.Register("payment.create", m.paymentCreate)
}

func (m *Methods) decode(c *Ctx, dst any) error {
	if len(c.Params) == 0 {
		return errors.New("params are required")
	}
	if err := json.Unmarshal(c.Params, dst); err != nil {
		return err
	}
	return m.validate.Struct(dst)
}

func badRequest(message string) map[string]any {
	return map[string]any{"success": false, "status": 400, "message": message}
}

type userAddParams struct {
	TelegramID   int64  `json:"telegramId" validate:"required,gt=0"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	LanguageCode string `json:"languageCode"`
	IsPremium    bool   `json:"isPremium"`
	InitData     string `json:"initData"`
}

func (m *Methods) userAdd(c *Ctx) (any, error) {
	var params userAddParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("telegramId is required"), nil
	}

	result, err := m.Users.Add(c.Request.Context(), users.AddParams{
		TelegramID:   params.TelegramID,
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Avatar:       params.Avatar,
		LanguageCode: params.LanguageCode,
		IsPremium:    params.IsPremium,
		InitData:     params.InitData,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserBlocked):
			return map[string]any{"status": 404, "result": "User blocked"}, nil
		case errors.Is(err, users.ErrInvalidInitData):
			return badRequest("Invalid init data"), nil
		}
		return nil, err
	}

	return map[string]any{
		"status":  200,
		"user":    result.User,
		"session": result.Session,
	}, nil
}

type upsertProfileParams struct {
	UserID   int64  `json:"userId" validate:"required,gt=0"`
	Nickname string `json:"nickname" validate:"required"`
	Age      int    `json:"age" validate:"required,gt=0,lte=120"`
	Telegram string `json:"telegram" validate:"required"`
	Skills   string `json:"skills"`
}

func (m *Methods) upsertUserProfile(c *Ctx) (any, error) {
	var params upsertProfileParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("userId, nickname, age and telegram are required"), nil
	}

	result, err := m.Profiles.Upsert(c.Request.Context(), postgres.UpsertProfileParams{
		UserID:   params.UserID,
		Nickname: params.Nickname,
		Age:      params.Age,
		Telegram: params.Telegram,
		Skills:   params.Skills,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return map[string]any{"success": false, "status": 404, "message": "User not found"}, nil
		}
		return nil, err
	}

	return map[string]any{
		"profile": result.Profile,
		"user":    result.User,
	}, nil
}

type getProfileParams struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func (m *Methods) getUserProfile(c *Ctx) (any, error) {
	var params getProfileParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("userId is required"), nil
	}

	result, err := m.Users.GetProfile(c.Request.Context(), params.UserID)
	if err != nil {
		if errors.Is(err, postgres.ErrProfileNotFound) {
			// The front-end treats an absent profile as a null result,
			// not an error.
			return json.RawMessage("null"), nil
		}
		return nil, err
	}

	return map[string]any{
		"profile": result.Profile,
		"user":    result.User,
	}, nil
}

type closeSessionParams struct {
	SessionID string `json:"sessionId" validate:"required"`
}

func (m *Methods) closeWebAppSession(c *Ctx) (any, error) {
	var params closeSessionParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("sessionId is required"), nil
	}

	if _, err := m.Users.CloseSession(c.Request.Context(), params.SessionID); err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			return map[string]any{"status": 404, "error": "Session not found"}, nil
		}
		return nil, err
	}

	return map[string]any{"status": 200, "result": "Session closed"}, nil
}

type createReportParams struct {
	Message   string `json:"message" validate:"required"`
	UserID    *int64 `json:"userId" validate:"omitempty,gt=0"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}

func (m *Methods) reportCreate(c *Ctx) (any, error) {
	var params createReportParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("message is required"), nil
	}

	ip := params.IPAddress
	if ip == "" {
		ip = clientIP(c)
	}
	ua := params.UserAgent
	if ua == "" {
		ua = c.UserAgent
	}

	report, err := m.Reports.Create(c.Request.Context(), postgres.CreateReportParams{
		Message:   params.Message,
		UserID:    params.UserID,
		IPAddress: ip,
		UserAgent: ua,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"status":  201,
		"data": map[string]any{
			"reportId":  report.ID,
			"createdAt": report.CreatedAt,
		},
	}, nil
}

type createQuestionParams struct {
	Question  string `json:"question" validate:"required"`
	UserID    int64  `json:"userId" validate:"required,gt=0"`
	IsPrivate bool   `json:"isPrivate"`
}

func (m *Methods) questionCreate(c *Ctx) (any, error) {
	var params createQuestionParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("question and userId are required"), nil
	}

	q, err := m.Questions.Create(c.Request.Context(), postgres.CreateQuestionParams{
		UserID:    params.UserID,
		Question:  params.Question,
		IsPrivate: params.IsPrivate,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"status":  201,
		"data": map[string]any{
			"questionId": q.ID,
			"createdAt":  q.CreatedAt,
		},
	}, nil
}

type getQuestionsParams struct {
	Status string `json:"status" validate:"omitempty,oneof=PENDING ANSWERED REJECTED ARCHIVED"`
	UserID *int64 `json:"userId" validate:"omitempty,gt=0"`
	Page   int    `json:"page" validate:"omitempty,gte=1"`
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (m *Methods) getQuestions(c *Ctx) (any, error) {
	params := getQuestionsParams{Page: 1, Limit: 20}
	if len(c.Params) > 0 {
		if err := m.decode(c, &params); err != nil {
			return badRequest("invalid filter"), nil
		}
	}

	filter := postgres.QuestionFilter{UserID: params.UserID, Page: params.Page, Limit: params.Limit}
	if params.Status != "" {
		status := enums.QuestionStatus(params.Status)
		filter.Status = &status
	}

	list, total, err := m.Questions.List(c.Request.Context(), filter)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"status":  200,
		"data": map[string]any{
			"questions": list,
			"total":     total,
			"page":      params.Page,
			"limit":     params.Limit,
		},
	}, nil
}

type getQuestionParams struct {
	QuestionID int64 `json:"questionId" validate:"required,gt=0"`
}

func (m *Methods) getQuestionByID(c *Ctx) (any, error) {
	var params getQuestionParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("questionId is required"), nil
	}

	details, err := m.Questions.GetByID(c.Request.Context(), params.QuestionID)
	if err != nil {
		if errors.Is(err, postgres.ErrQuestionNotFound) {
			return map[string]any{"success": false, "status": 404, "error": "Question not found"}, nil
		}
		return nil, err
	}

	return map[string]any{
		"success": true,
		"status":  200,
		"data":    details,
	}, nil
}

type createPaymentParams struct {
	UserID   int64   `json:"userId" validate:"required,gt=0"`
	ID       string  `json:"id" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Price    float64 `json:"price" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required"`
}

func (m *Methods) paymentCreate(c *Ctx) (any, error) {
	var params createPaymentParams
	if err := m.decode(c, &params); err != nil {
		return badRequest("userId, id, title, price and currency are required"), nil
	}

	_, err := m.Payments.Create(c.Request.Context(), postgres.InsertPaymentEventParams{
		PaymentID: params.ID,
		UserID:    params.UserID,
		Title:     params.Title,
		Amount:    params.Price,
		Currency:  params.Currency,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return map[string]any{"success": false, "status": 404, "error": "User not found"}, nil
		}
		return nil, err
	}

	return map[string]any{"success": true, "status": 200, "data": true}, nil
}

func clientIP(c *Ctx) string {
	host, _, err := net.SplitHostPort(c.ClientIP)
	if err != nil {
		return c.ClientIP
	}
	return host
}
