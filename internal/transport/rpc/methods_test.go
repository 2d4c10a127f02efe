package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
	"github.com/leisureprog/dead-ddos/internal/services/questions"
	"github.com/leisureprog/dead-ddos/internal/services/users"
)

type userServiceStub struct {
	addErr     error
	closeErr   error
	profileErr error
}

func (s *userServiceStub) Add(_ context.Context, params users.AddParams) (users.AddResult, error) {
	if s.addErr != nil {
		return users.AddResult{}, s.addErr
	}
	return users.AddResult{
		User:    model.User{ID: 5, TelegramID: params.TelegramID, IsActive: true},
		Session: model.Session{ID: "sess-1", UserID: 5},
	}, nil
}

func (s *userServiceStub) CloseSession(_ context.Context, sessionID string) (model.Session, error) {
	if s.closeErr != nil {
		return model.Session{}, s.closeErr
	}
	return model.Session{ID: sessionID}, nil
}

func (s *userServiceStub) GetProfile(_ context.Context, userID int64) (postgres.ProfileWithUser, error) {
	if s.profileErr != nil {
		return postgres.ProfileWithUser{}, s.profileErr
	}
	return postgres.ProfileWithUser{
		Profile: model.Profile{UserID: userID, Nickname: "neo"},
		User:    model.UserRef{ID: userID},
	}, nil
}

type profileServiceStub struct {
	err error
}

func (s *profileServiceStub) Upsert(_ context.Context, params postgres.UpsertProfileParams) (postgres.ProfileWithUser, error) {
	if s.err != nil {
		return postgres.ProfileWithUser{}, s.err
	}
	return postgres.ProfileWithUser{
		Profile: model.Profile{UserID: params.UserID, Nickname: params.Nickname},
		User:    model.UserRef{ID: params.UserID},
	}, nil
}

type questionServiceStub struct {
	created []postgres.CreateQuestionParams
	getErr  error
}

func (s *questionServiceStub) Create(_ context.Context, params postgres.CreateQuestionParams) (model.Question, error) {
	s.created = append(s.created, params)
	return model.Question{ID: 42, UserID: params.UserID, Status: enums.QuestionStatusPending}, nil
}

func (s *questionServiceStub) List(_ context.Context, _ postgres.QuestionFilter) ([]model.Question, int, error) {
	return []model.Question{{ID: 42}}, 1, nil
}

func (s *questionServiceStub) GetByID(_ context.Context, questionID int64) (questions.QuestionDetails, error) {
	if s.getErr != nil {
		return questions.QuestionDetails{}, s.getErr
	}
	return questions.QuestionDetails{Question: model.Question{ID: questionID}}, nil
}

type reportServiceStub struct {
	created []postgres.CreateReportParams
}

func (s *reportServiceStub) Create(_ context.Context, params postgres.CreateReportParams) (model.Report, error) {
	s.created = append(s.created, params)
	return model.Report{ID: 7, Message: params.Message, Status: enums.ReportStatusPending}, nil
}

type paymentServiceStub struct {
	err error
}

func (s *paymentServiceStub) Create(_ context.Context, params postgres.InsertPaymentEventParams) (model.PaymentEvent, error) {
	if s.err != nil {
		return model.PaymentEvent{}, s.err
	}
	return model.PaymentEvent{ID: 1, PaymentID: params.PaymentID}, nil
}

type testEnv struct {
	srv       *Server
	users     *userServiceStub
	questions *questionServiceStub
	reports   *reportServiceStub
	payments  *paymentServiceStub
	profiles  *profileServiceStub
}

func newTestEnv() *testEnv {
	env := &testEnv{
		srv:       NewServer(zap.NewNop()),
		users:     &userServiceStub{},
		questions: &questionServiceStub{},
		reports:   &reportServiceStub{},
		payments:  &paymentServiceStub{},
		profiles:  &profileServiceStub{},
	}
	NewMethods(env.users, env.profiles, env.questions, env.reports, env.payments).RegisterAll(env.srv)
	return env
}

func call(t *testing.T, srv *Server, method, params string) map[string]any {
	t.Helper()
	body := `{"jsonrpc":"2.0","method":"` + method + `","params":` + params + `,"id":1}`
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	return resp
}

func result(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	res, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %v", resp)
	}
	return res
}

func TestUserAdd(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "user.add", `{"telegramId":1001,"username":"neo"}`))
	if res["status"] != float64(200) {
		t.Fatalf("unexpected status: %v", res)
	}
	session, ok := res["session"].(map[string]any)
	if !ok || session["sessionId"] != "sess-1" {
		t.Fatalf("expected session in result, got %v", res)
	}
}

func TestUserAddBlocked(t *testing.T) {
	env := newTestEnv()
	env.users.addErr = users.ErrUserBlocked

	res := result(t, call(t, env.srv, "user.add", `{"telegramId":1001}`))
	if res["status"] != float64(404) || res["result"] != "User blocked" {
		t.Fatalf("expected blocked envelope, got %v", res)
	}
}

func TestUserAddMissingTelegramID(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "user.add", `{"username":"neo"}`))
	if res["status"] != float64(400) {
		t.Fatalf("expected 400 envelope, got %v", res)
	}
}

func TestReportCreateFillsClientMetadata(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "report.create", `{"message":"spam"}`))
	if res["success"] != true || res["status"] != float64(201) {
		t.Fatalf("unexpected envelope: %v", res)
	}
	data, ok := res["data"].(map[string]any)
	if !ok || data["reportId"] != float64(7) {
		t.Fatalf("expected reportId in data, got %v", res)
	}
	created := env.reports.created[0]
	if created.IPAddress != "10.1.2.3" {
		t.Fatalf("expected client ip filled in, got %q", created.IPAddress)
	}
	if created.UserAgent != "test-agent" {
		t.Fatalf("expected user agent filled in, got %q", created.UserAgent)
	}
}

func TestQuestionCreate(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "question.create", `{"question":"help","userId":5}`))
	if res["success"] != true || res["status"] != float64(201) {
		t.Fatalf("unexpected envelope: %v", res)
	}
	data := res["data"].(map[string]any)
	if data["questionId"] != float64(42) {
		t.Fatalf("expected questionId 42, got %v", data)
	}
}

func TestQuestionCreateValidation(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "question.create", `{"userId":5}`))
	if res["status"] != float64(400) {
		t.Fatalf("expected 400 for missing question, got %v", res)
	}
	if len(env.questions.created) != 0 {
		t.Fatal("invalid params must not reach the service")
	}
}

func TestGetQuestions(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "question.getQuestions", `{"status":"PENDING","page":2,"limit":10}`))
	data := res["data"].(map[string]any)
	if data["total"] != float64(1) || data["page"] != float64(2) || data["limit"] != float64(10) {
		t.Fatalf("unexpected paging echo: %v", data)
	}
}

func TestGetQuestionByIDNotFound(t *testing.T) {
	env := newTestEnv()
	env.questions.getErr = postgres.ErrQuestionNotFound

	res := result(t, call(t, env.srv, "question.getQuestionById", `{"questionId":404}`))
	if res["status"] != float64(404) {
		t.Fatalf("expected 404 envelope, got %v", res)
	}
}

func TestGetUserProfileAbsentIsNull(t *testing.T) {
	env := newTestEnv()
	env.users.profileErr = postgres.ErrProfileNotFound

	resp := call(t, env.srv, "user.getUserProfile", `{"userId":5}`)
	if resp["result"] != nil {
		t.Fatalf("expected null result, got %v", resp["result"])
	}
	if _, hasErr := resp["error"]; hasErr {
		t.Fatalf("absent profile is not a protocol error: %v", resp)
	}
}

func TestCloseSessionNotFound(t *testing.T) {
	env := newTestEnv()
	env.users.closeErr = postgres.ErrSessionNotFound

	res := result(t, call(t, env.srv, "user.closeWebAppSession", `{"sessionId":"nope"}`))
	if res["status"] != float64(404) || res["error"] != "Session not found" {
		t.Fatalf("expected not-found envelope, got %v", res)
	}
}

func TestPaymentCreate(t *testing.T) {
	env := newTestEnv()

	res := result(t, call(t, env.srv, "payment.create", `{"userId":5,"id":"pay-1","title":"Pro","price":9.99,"currency":"USD"}`))
	if res["success"] != true || res["status"] != float64(200) || res["data"] != true {
		t.Fatalf("unexpected envelope: %v", res)
	}
}

func TestPaymentCreateUnknownUser(t *testing.T) {
	env := newTestEnv()
	env.payments.err = postgres.ErrUserNotFound

	res := result(t, call(t, env.srv, "payment.create", `{"userId":404,"id":"pay-2","title":"Pro","price":9.99,"currency":"USD"}`))
	if res["success"] != false || res["status"] != float64(404) {
		t.Fatalf("expected 404 envelope, got %v", res)
	}
}
