package botapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/config"
	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	tginfra "github.com/leisureprog/dead-ddos/internal/infra/telegram"
	pgrepo "github.com/leisureprog/dead-ddos/internal/repo/postgres"
	questionsvc "github.com/leisureprog/dead-ddos/internal/services/questions"
	reportsvc "github.com/leisureprog/dead-ddos/internal/services/reports"
)

var errTestFailure = errors.New("write failed")

type gatewayStub struct {
	texts     []string
	webApps   []string
	htmls     []string
	callbacks []answeredCallback
}

type answeredCallback struct {
	text      string
	showAlert bool
}

func (g *gatewayStub) SendText(_ context.Context, _ int64, text string) error {
	g.texts = append(g.texts, text)
	return nil
}

func (g *gatewayStub) SendHTML(_ context.Context, _ int64, text string, _ []tginfra.Button) error {
	g.htmls = append(g.htmls, text)
	return nil
}

func (g *gatewayStub) SendWebApp(_ context.Context, _ int64, text, _, url string) error {
	g.webApps = append(g.webApps, url)
	return nil
}

func (g *gatewayStub) AnswerCallback(_ context.Context, _ string, text string, showAlert bool) error {
	g.callbacks = append(g.callbacks, answeredCallback{text: text, showAlert: showAlert})
	return nil
}

type annotatorStub struct {
	annotations []string
	errors      []string
}

func (n *annotatorStub) Annotate(_ context.Context, _ int64, _ int, _, annotation string) {
	n.annotations = append(n.annotations, annotation)
}

func (n *annotatorStub) ProcessingError(_ context.Context, _ callback.Entity, _ int64, _ callback.Action, _ string, reason string) {
	n.errors = append(n.errors, reason)
}

func (n *annotatorStub) Timestamp() string { return "01.06.2025 12:00" }

type accessStub struct {
	allowed map[int64]bool
}

func (s *accessStub) CheckAccess(_ context.Context, actorTelegramID int64) (bool, error) {
	return s.allowed[actorTelegramID], nil
}

type questionProcessorStub struct {
	params []questionsvc.ProcessParams
	err    error
}

func (s *questionProcessorStub) Process(_ context.Context, params questionsvc.ProcessParams) (pgrepo.QuestionTransition, error) {
	if s.err != nil {
		return pgrepo.QuestionTransition{}, s.err
	}
	s.params = append(s.params, params)
	return pgrepo.QuestionTransition{}, nil
}

type reportProcessorStub struct {
	params []reportsvc.ProcessParams
	err    error
}

func (s *reportProcessorStub) Process(_ context.Context, params reportsvc.ProcessParams) (pgrepo.ReportTransition, error) {
	if s.err != nil {
		return pgrepo.ReportTransition{}, s.err
	}
	s.params = append(s.params, params)
	return pgrepo.ReportTransition{}, nil
}

type profileModeratorStub struct {
	approved []int64
	rejected []int64
	err      error
}

func (s *profileModeratorStub) Approve(_ context.Context, telegramID int64) (pgrepo.ProfileWithUser, error) {
	if s.err != nil {
		return pgrepo.ProfileWithUser{}, s.err
	}
	s.approved = append(s.approved, telegramID)
	return pgrepo.ProfileWithUser{}, nil
}

func (s *profileModeratorStub) Reject(_ context.Context, telegramID int64) (pgrepo.ProfileWithUser, error) {
	if s.err != nil {
		return pgrepo.ProfileWithUser{}, s.err
	}
	s.rejected = append(s.rejected, telegramID)
	return pgrepo.ProfileWithUser{}, nil
}

type testApp struct {
	app       *App
	gw        *gatewayStub
	notifier  *annotatorStub
	questions *questionProcessorStub
	reports   *reportProcessorStub
	profiles  *profileModeratorStub
}

func newTestApp(allowed map[int64]bool) *testApp {
	t := &testApp{
		gw:        &gatewayStub{},
		notifier:  &annotatorStub{},
		questions: &questionProcessorStub{},
		reports:   &reportProcessorStub{},
		profiles:  &profileModeratorStub{},
	}
	t.app = &App{
		cfg: config.Config{
			Bot: config.BotConfig{WebAppURL: "https://t.me/deadddos/app", SupportURL: "https://t.me/support"},
		},
		logger:    zap.NewNop(),
		gateway:   t.gw,
		notifier:  t.notifier,
		access:    &accessStub{allowed: allowed},
		questions: t.questions,
		reports:   t.reports,
		profiles:  t.profiles,
	}
	return t
}

func TestStartCommandSendsWebApp(t *testing.T) {
	ta := newTestApp(nil)

	if err := ta.app.handleCommand(context.Background(), tginfra.CommandUpdate{ChatID: 1, Command: "start"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.gw.webApps) != 1 || ta.gw.webApps[0] != "https://t.me/deadddos/app" {
		t.Fatalf("expected web app button, got %v", ta.gw.webApps)
	}
}

func TestUnknownCallbackPayload(t *testing.T) {
	ta := newTestApp(nil)

	if err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{Data: "garbage"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.gw.callbacks) != 1 || ta.gw.callbacks[0].text != unknownActionToast {
		t.Fatalf("expected unknown-action toast, got %v", ta.gw.callbacks)
	}
}

func TestReportResolveAnnotatesMessage(t *testing.T) {
	ta := newTestApp(nil)

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "report:resolve:7", UserID: 9001, Username: "mod", ChatID: 500, MessageID: 31, MessageText: "alert",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.reports.params) != 1 || ta.reports.params[0].ReportID != 7 {
		t.Fatalf("expected report 7 processed, got %+v", ta.reports.params)
	}
	if len(ta.notifier.annotations) != 1 || !strings.Contains(ta.notifier.annotations[0], "✅ РЕШЕНО модератором @mod") {
		t.Fatalf("unexpected annotation: %v", ta.notifier.annotations)
	}
	if ta.gw.callbacks[0].text != "✅ Готово" {
		t.Fatalf("expected success toast, got %v", ta.gw.callbacks)
	}
}

func TestQuestionAnswerRequiresReply(t *testing.T) {
	ta := newTestApp(nil)

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "question:answer:42", UserID: 9001,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.questions.params) != 0 {
		t.Fatal("missing reply must not reach the workflow")
	}
	if ta.gw.callbacks[0].text != replyRequiredToast || !ta.gw.callbacks[0].showAlert {
		t.Fatalf("expected reply-required alert, got %+v", ta.gw.callbacks[0])
	}
}

func TestQuestionAnswerCarriesReplyText(t *testing.T) {
	ta := newTestApp(nil)

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "question:answer:42", UserID: 9001, Username: "mod", ReplyText: "restart the router",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.questions.params) != 1 {
		t.Fatalf("expected one process call, got %d", len(ta.questions.params))
	}
	if ta.questions.params[0].Answer != "restart the router" {
		t.Fatalf("expected reply text as answer, got %q", ta.questions.params[0].Answer)
	}
}

func TestCallbackPermissionDenied(t *testing.T) {
	ta := newTestApp(nil)
	ta.questions.err = questionsvc.ErrPermissionDenied

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "question:reject:42", UserID: 777,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	toast := ta.gw.callbacks[0]
	if toast.text != noPermissionToast || !toast.showAlert {
		t.Fatalf("expected permission alert, got %+v", toast)
	}
	if len(ta.notifier.annotations) != 0 {
		t.Fatal("denied action must not annotate the message")
	}
}

func TestCallbackAlreadyProcessed(t *testing.T) {
	ta := newTestApp(nil)
	ta.reports.err = pgrepo.ErrReportProcessed

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "report:reject:7", UserID: 9001,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ta.gw.callbacks[0].text != alreadyProcessedToast {
		t.Fatalf("expected already-processed toast, got %+v", ta.gw.callbacks[0])
	}
}

func TestProfileCallbackGated(t *testing.T) {
	ta := newTestApp(map[int64]bool{})

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "approve_profile:1001", UserID: 777,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.profiles.approved) != 0 {
		t.Fatal("denied actor must not approve profiles")
	}
	if ta.gw.callbacks[0].text != noPermissionToast {
		t.Fatalf("expected permission alert, got %+v", ta.gw.callbacks[0])
	}
}

func TestProfileApprove(t *testing.T) {
	ta := newTestApp(map[int64]bool{9001: true})

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "approve_profile:1001", UserID: 9001, Username: "mod", ChatID: 500, MessageID: 31,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.profiles.approved) != 1 || ta.profiles.approved[0] != 1001 {
		t.Fatalf("expected profile of 1001 approved, got %v", ta.profiles.approved)
	}
	if !strings.Contains(ta.notifier.annotations[0], "✅ ОДОБРЕНО модератором @mod") {
		t.Fatalf("unexpected annotation: %v", ta.notifier.annotations)
	}
}

func TestUnexpectedFailureReportsToAdminChat(t *testing.T) {
	ta := newTestApp(nil)
	ta.reports.err = errTestFailure

	err := ta.app.handleCallback(context.Background(), tginfra.CallbackUpdate{
		Data: "report:resolve:7", UserID: 9001, Username: "mod",
	})
	if err != nil {
		t.Fatalf("callback handling must swallow workflow failures: %v", err)
	}
	if len(ta.notifier.errors) != 1 {
		t.Fatalf("expected processing error routed to admin chat, got %v", ta.notifier.errors)
	}
	if ta.gw.callbacks[0].text != processingErrorToast {
		t.Fatalf("expected processing-error toast, got %+v", ta.gw.callbacks[0])
	}
}
