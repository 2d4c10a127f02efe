package botapp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	tginfra "github.com/leisureprog/dead-ddos/internal/infra/telegram"
	pgrepo "github.com/leisureprog/dead-ddos/internal/repo/postgres"
	questionsvc "github.com/leisureprog/dead-ddos/internal/services/questions"
	reportsvc "github.com/leisureprog/dead-ddos/internal/services/reports"
)

const (
	welcomeText = "Привет! Это DeadDDoS.\n\nОткрывай Mini App, заполняй профиль и задавай вопросы — модераторы ответят здесь."
	helpText    = "Доступные команды:\n/start — открыть Mini App\n/help — эта справка"

	noPermissionToast     = "❌ У вас нет прав для этого действия"
	alreadyProcessedToast = "⚠️ Уже обработано"
	notFoundToast         = "❌ Не найдено"
	unknownActionToast    = "Неизвестное действие"
	processingErrorToast  = "Ошибка обработки, попробуйте позже"
	replyRequiredToast    = "Ответьте на это сообщение текстом ответа, затем нажмите кнопку ещё раз"
)

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	switch update.Command {
	case "start":
		if a.cfg.Bot.WebAppURL != "" {
			return a.gateway.SendWebApp(ctx, update.ChatID, welcomeText, "🚀 Открыть приложение", a.cfg.Bot.WebAppURL)
		}
		return a.gateway.SendText(ctx, update.ChatID, welcomeText)
	case "help":
		var buttons []tginfra.Button
		if a.cfg.Bot.SupportURL != "" {
			buttons = append(buttons, tginfra.Button{Text: "🆘 Поддержка", Data: a.cfg.Bot.SupportURL})
		}
		if a.cfg.Bot.NewsURL != "" {
			buttons = append(buttons, tginfra.Button{Text: "📰 Новости", Data: a.cfg.Bot.NewsURL})
		}
		return a.gateway.SendHTML(ctx, update.ChatID, helpText, buttons)
	default:
		return nil
	}
}

// handleCallback routes one moderation button press: parse the payload,
// run the workflow, annotate the alert message and answer the callback
// with a toast. Processing failures are reported to the admin chat and
// never returned, so the listener loop keeps running.
func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	payload, err := callback.Parse(update.Data)
	if err != nil {
		return a.gateway.AnswerCallback(ctx, update.CallbackID, unknownActionToast, false)
	}

	var annotation string
	switch payload.Entity {
	case callback.EntityReport:
		annotation, err = a.processReport(ctx, update, payload)
	case callback.EntityQuestion:
		annotation, err = a.processQuestion(ctx, update, payload)
	case callback.EntityProfile:
		annotation, err = a.processProfile(ctx, update, payload)
	}

	if err != nil {
		return a.answerFailure(ctx, update, payload, err)
	}
	if annotation == "" {
		return nil
	}

	a.notifier.Annotate(ctx, update.ChatID, update.MessageID, update.MessageText, annotation+"\n⏱ "+a.notifier.Timestamp())
	return a.gateway.AnswerCallback(ctx, update.CallbackID, "✅ Готово", false)
}

func (a *App) processReport(ctx context.Context, update tginfra.CallbackUpdate, payload callback.Payload) (string, error) {
	_, err := a.reports.Process(ctx, reportsvc.ProcessParams{
		ReportID:        payload.ID,
		ActorTelegramID: update.UserID,
		Action:          payload.Action,
		Comment:         "telegram callback by @" + moderatorName(update),
	})
	if err != nil {
		return "", err
	}

	if payload.Action == callback.ActionResolve {
		return "✅ РЕШЕНО модератором @" + moderatorName(update), nil
	}
	return "❌ ОТКЛОНЕНО модератором @" + moderatorName(update), nil
}

func (a *App) processQuestion(ctx context.Context, update tginfra.CallbackUpdate, payload callback.Payload) (string, error) {
	if payload.Action == callback.ActionAnswer && update.ReplyText == "" {
		return "", errReplyRequired
	}

	_, err := a.questions.Process(ctx, questionsvc.ProcessParams{
		QuestionID:      payload.ID,
		ActorTelegramID: update.UserID,
		Action:          payload.Action,
		Answer:          update.ReplyText,
		Comment:         "telegram callback by @" + moderatorName(update),
	})
	if err != nil {
		return "", err
	}

	switch payload.Action {
	case callback.ActionAnswer:
		return "💬 ОТВЕЧЕНО модератором @" + moderatorName(update), nil
	case callback.ActionArchive:
		return "📦 В АРХИВЕ (модератор @" + moderatorName(update) + ")", nil
	default:
		return "❌ ОТКЛОНЕНО модератором @" + moderatorName(update), nil
	}
}

// processProfile gates the callback itself: profile moderation has no
// workflow service gate of its own.
func (a *App) processProfile(ctx context.Context, update tginfra.CallbackUpdate, payload callback.Payload) (string, error) {
	allowed, err := a.access.CheckAccess(ctx, update.UserID)
	if err != nil {
		return "", fmt.Errorf("check moderation access: %w", err)
	}
	if !allowed {
		return "", errNoPermission
	}

	if payload.Action == callback.ActionApprove {
		if _, err := a.profiles.Approve(ctx, payload.ID); err != nil {
			return "", err
		}
		return "✅ ОДОБРЕНО модератором @" + moderatorName(update), nil
	}

	if _, err := a.profiles.Reject(ctx, payload.ID); err != nil {
		return "", err
	}
	return "❌ ОТКЛОНЕНО модератором @" + moderatorName(update), nil
}

var (
	errReplyRequired = errors.New("reply with the answer text first")
	errNoPermission  = errors.New("no moderation permission")
)

func (a *App) answerFailure(ctx context.Context, update tginfra.CallbackUpdate, payload callback.Payload, err error) error {
	switch {
	case errors.Is(err, errReplyRequired):
		return a.gateway.AnswerCallback(ctx, update.CallbackID, replyRequiredToast, true)
	case errors.Is(err, errNoPermission),
		errors.Is(err, questionsvc.ErrPermissionDenied),
		errors.Is(err, reportsvc.ErrPermissionDenied):
		return a.gateway.AnswerCallback(ctx, update.CallbackID, noPermissionToast, true)
	case errors.Is(err, pgrepo.ErrQuestionProcessed), errors.Is(err, pgrepo.ErrReportProcessed):
		return a.gateway.AnswerCallback(ctx, update.CallbackID, alreadyProcessedToast, true)
	case errors.Is(err, pgrepo.ErrQuestionNotFound),
		errors.Is(err, pgrepo.ErrReportNotFound),
		errors.Is(err, pgrepo.ErrProfileNotFound),
		errors.Is(err, pgrepo.ErrUserNotFound):
		return a.gateway.AnswerCallback(ctx, update.CallbackID, notFoundToast, true)
	}

	a.logger.Error("moderation callback failed",
		zap.String("data", update.Data),
		zap.Int64("actor", update.UserID),
		zap.Error(err),
	)
	a.notifier.ProcessingError(ctx, payload.Entity, payload.ID, payload.Action, moderatorName(update), err.Error())
	return a.gateway.AnswerCallback(ctx, update.CallbackID, processingErrorToast, true)
}

func moderatorName(update tginfra.CallbackUpdate) string {
	if update.Username != "" {
		return update.Username
	}
	return fmt.Sprintf("id%d", update.UserID)
}
