// Package notify formats moderation alerts and user notifications and
// dispatches them through the Telegram gateway. Delivery is fire and
// forget: failures are logged and swallowed, never surfaced to the
// workflow that triggered the message.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/infra/telegram"
)

// Gateway is the outbound slice of the bot the notifier needs.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendAlert(ctx context.Context, chatID int64, text string, buttons []telegram.Button) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
}

type Notifier struct {
	gateway     Gateway
	adminChatID int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewNotifier(gateway Gateway, adminChatID int64, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		gateway:     gateway,
		adminChatID: adminChatID,
		logger:      logger,
		now:         time.Now,
	}
}

// QuestionReceived alerts the admin chat about a new question with the
// answer/reject actions attached.
func (n *Notifier) QuestionReceived(ctx context.Context, q model.Question, submitter model.UserRef) {
	text := fmt.Sprintf(
		"❓ НОВЫЙ ВОПРОС #%d\n\n📝 Вопрос:\n%s\n\n👤 Пользователь: %s\n⏱ Дата: %s",
		q.ID, q.Question, submitter.DisplayName(), q.CreatedAt.Format("02.01.2006 15:04"),
	)
	n.sendAlert(ctx, n.adminChatID, text, questionButtons(q.ID))
}

// QuestionOutcome notifies the submitter after moderation. ANSWERED
// includes the answer text, REJECTED a generic guidance line, ARCHIVED
// stays silent.
func (n *Notifier) QuestionOutcome(ctx context.Context, submitterTelegramID int64, q model.Question, status enums.QuestionStatus) {
	var text string
	switch status {
	case enums.QuestionStatusAnswered:
		answer := "No answer provided"
		if q.Answer != nil && *q.Answer != "" {
			answer = *q.Answer
		}
		text = fmt.Sprintf(
			"📬 Your question has been answered\n\n❓ Question: %s\n💬 Answer: %s\n\nThank you for your question!",
			q.Question, answer,
		)
	case enums.QuestionStatusRejected:
		text = fmt.Sprintf(
			"⚠️ Your question has been reviewed\n\n❓ Question: %s\nStatus: Rejected\n\nPlease review our guidelines and try again.",
			q.Question,
		)
	default:
		return
	}
	n.sendMarkdown(ctx, submitterTelegramID, text)
}

// ReportReceived alerts the admin chat about a new report with the
// resolve/reject actions attached.
func (n *Notifier) ReportReceived(ctx context.Context, report model.Report, submitterInfo string) {
	if submitterInfo == "" {
		submitterInfo = "Нет информации о пользователе"
	}
	text := fmt.Sprintf(
		"🚨 НОВЫЙ ОТЧЕТ #%d\n\n📝 %s\n\n👤 %s\n⏱️ %s",
		report.ID, report.Message, submitterInfo, report.CreatedAt.Format("02.01.2006 15:04"),
	)
	n.sendAlert(ctx, n.adminChatID, text, reportButtons(report.ID))
}

// ReportRejected tells the submitter their report was reviewed and
// rejected. Resolution stays silent.
func (n *Notifier) ReportRejected(ctx context.Context, submitterTelegramID, reportID int64) {
	n.sendMarkdown(ctx, submitterTelegramID, fmt.Sprintf("Your report #%d was reviewed and rejected", reportID))
}

// ProfileSubmitted alerts the admin chat about a fresh profile submission.
// The action buttons are keyed by the submitter's Telegram id, because
// that is the only identifier the rendered alert carries.
func (n *Notifier) ProfileSubmitted(ctx context.Context, profile model.Profile, user model.UserRef) {
	text := fmt.Sprintf(
		"🆕 НОВЫЙ ПРОФИЛЬ НА МОДЕРАЦИЮ\n\n👤 Пользователь: %s\n🆔 ID: %d\n\n📛 Никнейм: %s\n🔢 Возраст: %d\n📱 Telegram: @%s\n🛠 Навыки: %s",
		user.DisplayName(), user.TelegramID, profile.Nickname, profile.Age, profile.Telegram, profile.Skills,
	)
	n.sendAlert(ctx, n.adminChatID, text, profileButtons(user.TelegramID))
}

func (n *Notifier) ProfileApproved(ctx context.Context, submitterTelegramID int64) {
	n.sendMarkdown(ctx, submitterTelegramID, "🎉 Your profile has been approved by the admin!")
}

func (n *Notifier) ProfileRejected(ctx context.Context, submitterTelegramID int64) {
	n.sendMarkdown(ctx, submitterTelegramID, "❌ Your profile has been rejected by an admin. Please update your information and submit for re-check.")
}

// PaymentReceived alerts the admin chat about a purchase intent.
func (n *Notifier) PaymentReceived(ctx context.Context, event model.PaymentEvent, user model.UserRef) {
	text := fmt.Sprintf(
		"💰 НОВЫЙ ПЛАТЕЖ #%s\n\n🏷️ План: %s\n💵 Сумма: %s%.2f\n👤 Пользователь: %s %s (%s)\n🆔 Telegram ID: %d",
		event.PaymentID, event.Title, event.Currency, event.Amount,
		user.FirstName, user.LastName, user.DisplayName(), user.TelegramID,
	)
	n.sendAlert(ctx, n.adminChatID, text, nil)
}

// PaymentFailed routes a payment processing failure to the admin chat.
func (n *Notifier) PaymentFailed(ctx context.Context, paymentID, reason string) {
	text := fmt.Sprintf("❌ Ошибка при обработке платежа #%s\n\n%s", paymentID, reason)
	n.sendAlert(ctx, n.adminChatID, text, nil)
}

// ProcessingError reports a failed moderation action to the admin chat,
// the secondary observability channel for workflow failures.
func (n *Notifier) ProcessingError(ctx context.Context, entity callback.Entity, entityID int64, action callback.Action, moderator string, reason string) {
	if moderator == "" {
		moderator = "unknown"
	}
	text := fmt.Sprintf(
		"🚨 %s processing error #%d\n\nAction: %s\nModerator: @%s\nError: %s",
		entity, entityID, action, moderator, reason,
	)
	n.sendAlert(ctx, n.adminChatID, text, nil)
}

// Annotate rewrites a moderation alert in place, appending the outcome
// line and dropping the action keyboard.
func (n *Notifier) Annotate(ctx context.Context, chatID int64, messageID int, originalText, annotation string) {
	if n.gateway == nil || chatID == 0 || messageID == 0 {
		return
	}
	text := EscapeMarkdownV2(originalText + "\n\n" + annotation)
	if err := n.gateway.EditMessageText(ctx, chatID, messageID, text); err != nil {
		n.logger.Warn("failed to annotate moderation message", zap.Error(err), zap.Int("message_id", messageID))
	}
}

func (n *Notifier) Timestamp() string {
	return n.now().Format("02.01.2006 15:04")
}

func (n *Notifier) sendAlert(ctx context.Context, chatID int64, text string, buttons []telegram.Button) {
	if n.gateway == nil || chatID == 0 {
		n.logger.Debug("notification gateway not configured, dropping alert")
		return
	}
	if err := n.gateway.SendAlert(ctx, chatID, EscapeMarkdownV2(text), buttons); err != nil {
		n.logger.Warn("failed to send telegram alert", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (n *Notifier) sendMarkdown(ctx context.Context, chatID int64, text string) {
	if n.gateway == nil || chatID == 0 {
		n.logger.Debug("notification gateway not configured, dropping message")
		return
	}
	if err := n.gateway.SendAlert(ctx, chatID, EscapeMarkdownV2(text), nil); err != nil {
		n.logger.Warn("failed to send telegram notification", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func questionButtons(questionID int64) []telegram.Button {
	id := strconv.FormatInt(questionID, 10)
	return []telegram.Button{
		{Text: "💬 Ответить", Data: "question:answer:" + id},
		{Text: "❌ Отклонить", Data: "question:reject:" + id},
	}
}

func reportButtons(reportID int64) []telegram.Button {
	id := strconv.FormatInt(reportID, 10)
	return []telegram.Button{
		{Text: "✅ Решить", Data: "report:resolve:" + id},
		{Text: "❌ Отклонить", Data: "report:reject:" + id},
	}
}

func profileButtons(telegramID int64) []telegram.Button {
	id := strconv.FormatInt(telegramID, 10)
	return []telegram.Button{
		{Text: "✅ Одобрить", Data: "approve_profile:" + id},
		{Text: "❌ Отклонить", Data: "reject_profile:" + id},
	}
}
