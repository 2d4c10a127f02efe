package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leisureprog/dead-ddos/internal/infra/httpclient"
)

// Bot wraps the Telegram Bot API as the notification gateway: outbound
// messages with optional inline action keyboards, and the inbound update
// loop for commands and button presses.
type Bot struct {
	api        *tgbotapi.BotAPI
	token      string
	httpClient *http.Client
}

type CommandUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Command   string
	Args      string
}

type CallbackUpdate struct {
	CallbackID  string
	ChatID      int64
	UserID      int64
	Username    string
	Data        string
	MessageID   int
	MessageText string
	// ReplyText is the text of the message the moderation alert replied to,
	// if any. Question answers are sourced from it.
	ReplyText string
}

type Handlers struct {
	OnCommand  func(context.Context, CommandUpdate) error
	OnCallback func(context.Context, CallbackUpdate) error
}

// Button is one inline keyboard action; Data is the callback payload.
type Button struct {
	Text string
	Data string
}

func NewBot(token string) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{
		api:        api,
		token:      token,
		httpClient: httpclient.New(60 * time.Second),
	}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.Message != nil && update.Message.From != nil {
				if update.Message.IsCommand() && handlers.OnCommand != nil {
					err := handlers.OnCommand(ctx, CommandUpdate{
						ChatID:    update.Message.Chat.ID,
						UserID:    update.Message.From.ID,
						Username:  update.Message.From.UserName,
						FirstName: update.Message.From.FirstName,
						Command:   update.Message.Command(),
						Args:      update.Message.CommandArguments(),
					})
					if err != nil {
						return err
					}
					continue
				}
			}

			if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
				cb := CallbackUpdate{
					CallbackID: update.CallbackQuery.ID,
					UserID:     update.CallbackQuery.From.ID,
					Username:   update.CallbackQuery.From.UserName,
					Data:       update.CallbackQuery.Data,
				}
				if msg := update.CallbackQuery.Message; msg != nil {
					cb.ChatID = msg.Chat.ID
					cb.MessageID = msg.MessageID
					cb.MessageText = msg.Text
					if msg.ReplyToMessage != nil {
						cb.ReplyText = msg.ReplyToMessage.Text
					}
				}
				if err := handlers.OnCallback(ctx, cb); err != nil {
					return err
				}
			}
		}
	}
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}

// SendAlert delivers a MarkdownV2 message with an optional single-row
// inline keyboard. Text must already be escaped by the caller.
func (b *Bot) SendAlert(ctx context.Context, chatID int64, text string, buttons []Button) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if len(buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, btn := range buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendHTML(ctx context.Context, chatID int64, text string, buttons []Button) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, btn := range buttons {
			if strings.HasPrefix(btn.Data, "http") {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.Data)))
				continue
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram html message: %w", err)
	}

	_ = ctx
	return nil
}

// SendWebApp sends a message with a single web_app launch button.
func (b *Bot) SendWebApp(ctx context.Context, chatID int64, text, buttonText, url string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
			{Text: buttonText, WebApp: &tgbotapi.WebAppInfo{URL: url}},
		}},
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram webapp message: %w", err)
	}

	_ = ctx
	return nil
}

// EditMessageText rewrites a moderation alert in place and clears its
// inline keyboard. Text must already be escaped.
func (b *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 || messageID == 0 {
		return fmt.Errorf("chat id and message id are required")
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = showAlert
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}

	_ = ctx
	return nil
}

// UserAvatarDataURL fetches the user's first profile photo and returns it
// inlined as a base64 data URL, or "" when the user has no photos.
func (b *Bot) UserAvatarDataURL(ctx context.Context, telegramID int64) (string, error) {
	if b == nil || b.api == nil {
		return "", fmt.Errorf("telegram bot is not initialized")
	}
	if telegramID <= 0 {
		return "", fmt.Errorf("invalid telegram id")
	}

	photos, err := b.api.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{
		UserID: telegramID,
		Limit:  1,
	})
	if err != nil {
		return "", fmt.Errorf("get user profile photos: %w", err)
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return "", nil
	}

	tgFile, err := b.api.GetFile(tgbotapi.FileConfig{FileID: photos.Photos[0][0].FileID})
	if err != nil {
		return "", fmt.Errorf("get avatar file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tgFile.Link(b.token), nil)
	if err != nil {
		return "", fmt.Errorf("build avatar request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download avatar: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download avatar: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read avatar body: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
