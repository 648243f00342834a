// Command bot runs the martyrs gallery Telegram bot: the webhook receiver,
// the moderation workflow, the public read API, and the background
// maintenance loops, all in one process backed by a local SQLite file.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/bot"
	"github.com/devyouns/martyrs-gallery-bot/internal/config"
	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
	httpapi "github.com/devyouns/martyrs-gallery-bot/internal/http"
	"github.com/devyouns/martyrs-gallery-bot/internal/imgstore"
	"github.com/devyouns/martyrs-gallery-bot/internal/observability"
	"github.com/devyouns/martyrs-gallery-bot/internal/repo"
	"github.com/devyouns/martyrs-gallery-bot/internal/services"
	"github.com/devyouns/martyrs-gallery-bot/internal/sysutil"
	"github.com/devyouns/martyrs-gallery-bot/internal/telegram"
	"github.com/devyouns/martyrs-gallery-bot/internal/worker"
)

//
// Repo shims: adapt the repository free functions to the consumer-side
// interfaces the services declare (same pattern as the gallery shim in the
// HTTP router).
//

type sessionRepoShim struct{}

func (sessionRepoShim) SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return repo.SaveSession(ctx, db, s)
}

func (sessionRepoShim) GetSession(ctx context.Context, db *gorm.DB, userID string) (*domain.Session, error) {
	return repo.GetSession(ctx, db, userID)
}

func (sessionRepoShim) DeleteSession(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.DeleteSession(ctx, db, userID)
}

func (sessionRepoShim) DeleteSessionsIdleBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.DeleteSessionsIdleBefore(ctx, db, cutoff)
}

type editSourceShim struct{}

func (editSourceShim) GetMartyrOwned(ctx context.Context, db *gorm.DB, id, ownerUserID string) (*domain.Martyr, error) {
	return repo.GetMartyrOwned(ctx, db, id, ownerUserID)
}

func (editSourceShim) GetRequestOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SubmissionRequest, error) {
	return repo.GetRequestOwned(ctx, db, id, userID)
}

type requestRepoShim struct{}

func (requestRepoShim) CreateRequest(ctx context.Context, db *gorm.DB, userID string, typ domain.RequestType, targetID *string, payload domain.MartyrPayload, sub domain.Submitter) (*domain.SubmissionRequest, error) {
	return repo.CreateRequest(ctx, db, userID, typ, targetID, payload, sub)
}

func (requestRepoShim) GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.SubmissionRequest, error) {
	return repo.GetRequest(ctx, db, id)
}

func (requestRepoShim) GetRequestOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SubmissionRequest, error) {
	return repo.GetRequestOwned(ctx, db, id, userID)
}

func (requestRepoShim) GetPendingByTarget(ctx context.Context, db *gorm.DB, targetID string) (*domain.SubmissionRequest, error) {
	return repo.GetPendingByTarget(ctx, db, targetID)
}

func (requestRepoShim) ListRequestsByUser(ctx context.Context, db *gorm.DB, userID string, statuses ...domain.RequestStatus) ([]domain.SubmissionRequest, error) {
	return repo.ListRequestsByUser(ctx, db, userID, statuses...)
}

func (requestRepoShim) ListPendingPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SubmissionRequest, error) {
	return repo.ListPendingPage(ctx, db, offset, limit)
}

func (requestRepoShim) UpdateRequestPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error {
	return repo.UpdateRequestPayload(ctx, db, id, payload)
}

func (requestRepoShim) UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, status domain.RequestStatus, reviewedAt time.Time) error {
	return repo.UpdateRequestStatus(ctx, db, id, status, reviewedAt)
}

func (requestRepoShim) DeleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteRequest(ctx, db, id)
}

func (requestRepoShim) CountRequests(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountRequests(ctx, db)
}

func (requestRepoShim) CountRequestsByStatus(ctx context.Context, db *gorm.DB, status domain.RequestStatus) (int64, error) {
	return repo.CountRequestsByStatus(ctx, db, status)
}

type martyrRepoShim struct{}

func (martyrRepoShim) CreateMartyr(ctx context.Context, db *gorm.DB, requestID, ownerUserID string, payload domain.MartyrPayload) (*domain.Martyr, error) {
	return repo.CreateMartyr(ctx, db, requestID, ownerUserID, payload)
}

func (martyrRepoShim) GetMartyrOwned(ctx context.Context, db *gorm.DB, id, ownerUserID string) (*domain.Martyr, error) {
	return repo.GetMartyrOwned(ctx, db, id, ownerUserID)
}

func (martyrRepoShim) GetMartyrByRequestID(ctx context.Context, db *gorm.DB, requestID string) (*domain.Martyr, error) {
	return repo.GetMartyrByRequestID(ctx, db, requestID)
}

func (martyrRepoShim) UpdateMartyrPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error {
	return repo.UpdateMartyrPayload(ctx, db, id, payload)
}

func (martyrRepoShim) DeleteMartyr(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteMartyr(ctx, db, id)
}

func (martyrRepoShim) ListMartyrsByOwner(ctx context.Context, db *gorm.DB, ownerUserID string) ([]domain.Martyr, error) {
	return repo.ListMartyrsByOwner(ctx, db, ownerUserID)
}

func (martyrRepoShim) CountMartyrs(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMartyrs(ctx, db)
}

type abuseRepoShim struct{}

func (abuseRepoShim) GetOrCreateCounter(ctx context.Context, db *gorm.DB, userID string) (*domain.AbuseCounter, error) {
	return repo.GetOrCreateCounter(ctx, db, userID)
}

func (abuseRepoShim) IncrementCounter(ctx context.Context, db *gorm.DB, userID string) (int, error) {
	return repo.IncrementCounter(ctx, db, userID)
}

func (abuseRepoShim) BlockForLimit(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.BlockForLimit(ctx, db, userID)
}

func (abuseRepoShim) ResetLimitedCounters(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.ResetLimitedCounters(ctx, db)
}

func main() {
	// Load .env if present; real environments set the variables directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")
	log.Info().Str("version", version).Msg("starting martyrs gallery bot")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Outbound clients
	tg := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIBase, nil)
	images := imgstore.NewUploader(cfg.Imgbb.APIKey, cfg.Imgbb.Endpoint, nil)

	// Services
	notifier := bot.NewTelegramNotifier(tg, cfg.AdminUserID)
	moderation := services.NewModerationService(db, requestRepoShim{}, martyrRepoShim{}, notifier)
	conversation := services.NewConversationService(db, sessionRepoShim{}, editSourceShim{}, tg, images, moderation)
	guard := services.NewGuardService(db, abuseRepoShim{}, cfg.RequestCeiling)

	dispatcher := bot.NewDispatcher(tg, guard, conversation, moderation, cfg.AdminUserID)

	// Maintenance loops
	sweeper := worker.NewSweeper(db, sessionRepoShim{}, guard, cfg.SessionTTL)
	go sweeper.StartSessionSweep(rootCtx, cfg.SessionSweepEvery)
	go sweeper.StartLimitReset(rootCtx, cfg.AbuseResetEvery)

	// HTTP transport
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
