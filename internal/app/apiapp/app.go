// Package apiapp wires the HTTP API binary: config, storage, services
// and the JSON-RPC endpoint.
package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/config"
	"github.com/leisureprog/dead-ddos/internal/infra/telegram"
	pgrepo "github.com/leisureprog/dead-ddos/internal/repo/postgres"
	redrepo "github.com/leisureprog/dead-ddos/internal/repo/redis"
	accesssvc "github.com/leisureprog/dead-ddos/internal/services/access"
	notifysvc "github.com/leisureprog/dead-ddos/internal/services/notify"
	paymentsvc "github.com/leisureprog/dead-ddos/internal/services/payments"
	profilesvc "github.com/leisureprog/dead-ddos/internal/services/profiles"
	questionsvc "github.com/leisureprog/dead-ddos/internal/services/questions"
	reportsvc "github.com/leisureprog/dead-ddos/internal/services/reports"
	userssvc "github.com/leisureprog/dead-ddos/internal/services/users"
	"github.com/leisureprog/dead-ddos/internal/transport/rpc"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cache := redrepo.NewSnapshotCache(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	questionRepo := pgrepo.NewQuestionRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	sessionRepo := pgrepo.NewSessionRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)

	var bot *telegram.Bot
	if cfg.Bot.Token == "" {
		log.Warn("bot token not configured, notifications disabled")
	} else if b, err := telegram.NewBot(cfg.Bot.Token); err != nil {
		log.Warn("telegram init failed, continuing without notifications", zap.Error(err))
	} else {
		bot = b
	}

	var gateway notifysvc.Gateway
	var avatars userssvc.AvatarFetcher
	if bot != nil {
		gateway = bot
		avatars = bot
	}
	notifier := notifysvc.NewNotifier(gateway, cfg.Bot.AdminChatID, log)

	accessService := accesssvc.NewService(userRepo, cfg.Bot.AdminChatID, log)
	userService := userssvc.NewService(userssvc.Deps{
		Users:      userRepo,
		Profiles:   profileRepo,
		Sessions:   sessionRepo,
		Avatars:    avatars,
		Cache:      cache,
		BotToken:   cfg.Bot.Token,
		SessionTTL: cfg.Session.TTL,
		ProfileTTL: cfg.Cache.ProfileTTL,
		Logger:     log,
	})
	profileService := profilesvc.NewService(profileRepo, cache, notifier, log)
	questionService := questionsvc.NewService(questionsvc.Deps{
		Questions: questionRepo,
		Users:     userRepo,
		Access:    accessService,
		Notifier:  notifier,
		Cache:     cache,
		CacheTTL:  cfg.Cache.QuestionTTL,
		Logger:    log,
	})
	reportService := reportsvc.NewService(reportRepo, userRepo, accessService, notifier, log)
	paymentService := paymentsvc.NewService(paymentRepo, userRepo, notifier, log)

	rpcServer := rpc.NewServer(log)
	rpc.NewMethods(userService, profileService, questionService, reportService, paymentService).RegisterAll(rpcServer)

	RegisterRoutes(r, Dependencies{
		RPC:    rpcServer,
		Logger: log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
