// Package botapp wires the bot binary: the long-polling update listener,
// moderation callback handling and the session retention loop.
package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/config"
	"github.com/leisureprog/dead-ddos/internal/domain/callback"
	tginfra "github.com/leisureprog/dead-ddos/internal/infra/telegram"
	"github.com/leisureprog/dead-ddos/internal/jobs/cleanup"
	pgrepo "github.com/leisureprog/dead-ddos/internal/repo/postgres"
	accesssvc "github.com/leisureprog/dead-ddos/internal/services/access"
	notifysvc "github.com/leisureprog/dead-ddos/internal/services/notify"
	profilesvc "github.com/leisureprog/dead-ddos/internal/services/profiles"
	questionsvc "github.com/leisureprog/dead-ddos/internal/services/questions"
	reportsvc "github.com/leisureprog/dead-ddos/internal/services/reports"
)

type questionProcessor interface {
	Process(ctx context.Context, params questionsvc.ProcessParams) (pgrepo.QuestionTransition, error)
}

type reportProcessor interface {
	Process(ctx context.Context, params reportsvc.ProcessParams) (pgrepo.ReportTransition, error)
}

type profileModerator interface {
	Approve(ctx context.Context, telegramID int64) (pgrepo.ProfileWithUser, error)
	Reject(ctx context.Context, telegramID int64) (pgrepo.ProfileWithUser, error)
}

type accessChecker interface {
	CheckAccess(ctx context.Context, actorTelegramID int64) (bool, error)
}

type gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendHTML(ctx context.Context, chatID int64, text string, buttons []tginfra.Button) error
	SendWebApp(ctx context.Context, chatID int64, text, buttonText, url string) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
}

type annotator interface {
	Annotate(ctx context.Context, chatID int64, messageID int, originalText, annotation string)
	ProcessingError(ctx context.Context, entity callback.Entity, entityID int64, action callback.Action, moderator string, reason string)
	Timestamp() string
}

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	bot      *tginfra.Bot

	gateway   gateway
	notifier  annotator
	access    accessChecker
	questions questionProcessor
	reports   reportProcessor
	profiles  profileModerator

	cleanupJob *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if strings.TrimSpace(cfg.Bot.Token) == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required for the bot app")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	bot, err := tginfra.NewBot(cfg.Bot.Token)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	questionRepo := pgrepo.NewQuestionRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	sessionRepo := pgrepo.NewSessionRepo(pool)

	notifier := notifysvc.NewNotifier(bot, cfg.Bot.AdminChatID, logger)
	accessService := accesssvc.NewService(userRepo, cfg.Bot.AdminChatID, logger)
	questionService := questionsvc.NewService(questionsvc.Deps{
		Questions: questionRepo,
		Users:     userRepo,
		Access:    accessService,
		Notifier:  notifier,
		CacheTTL:  cfg.Cache.QuestionTTL,
		Logger:    logger,
	})
	reportService := reportsvc.NewService(reportRepo, userRepo, accessService, notifier, logger)
	profileService := profilesvc.NewService(profileRepo, nil, notifier, logger)
	cleanupJob := cleanup.NewSessionCleanupJob(sessionRepo, cfg.Session.Retention, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		bot:        bot,
		gateway:    bot,
		notifier:   notifier,
		access:     accessService,
		questions:  questionService,
		reports:    reportService,
		profiles:   profileService,
		cleanupJob: cleanupJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()
	go func() {
		errCh <- a.bot.Listen(ctx, tginfra.Handlers{
			OnCommand:  a.handleCommand,
			OnCallback: a.handleCallback,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Session.CleanupInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Shutdown() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
