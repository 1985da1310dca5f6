// Package bootstrap builds the service graph shared by the HTTP server and
// the engagectl command.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/config"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/database"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/discord"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/twitch"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/eventlog"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/logger"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/storage"
	minioStorage "github.com/Redshadow31/tenf-v2-sub004/pkg/storage/minio"
	s3Storage "github.com/Redshadow31/tenf-v2-sub004/pkg/storage/s3"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/storage/sqlitekv"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type App struct {
	Config         *config.AppConfig
	Scoring        config.ScoringConfig
	Members        services.MemberService
	Evaluations    services.EvaluationService
	Engagement     services.EngagementService
	Duplicates     services.DuplicateService
	Reconciliation services.ReconciliationService

	closers []func() error
	log     waLog.Logger
}

// Close libera as conexões de banco e o store legado.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warnf("close: %v", err)
		}
	}
}

func Build(ctx context.Context, cfg *config.AppConfig, loggers *logger.Logger) (*App, error) {
	log := loggers.App
	app := &App{Config: cfg, log: log}

	scoringCfg, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		return nil, err
	}
	app.Scoring = scoringCfg

	var (
		memberRepo     repositories.MemberRepository
		evaluationRepo repositories.EvaluationRepository
	)
	switch cfg.DBDriver {
	case "postgres":
		log.Infof("initializing postgres repositories")
		sqlDB, err := database.OpenSQL(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, sqlDB.Close)
		if err := database.Migrate(ctx, sqlDB); err != nil {
			app.Close()
			return nil, err
		}
		gormDB, err := database.Open(cfg.DatabaseDSN)
		if err != nil {
			app.Close()
			return nil, err
		}
		if handle, err := gormDB.DB(); err == nil {
			app.closers = append(app.closers, handle.Close)
		}
		memberRepo = repositories.NewPostgresMemberRepo(sqlDB)
		evaluationRepo = repositories.NewGormEvaluationRepo(gormDB)
	default:
		log.Infof("initializing in-memory repositories")
		memberRepo = repositories.NewInMemoryMemberRepo()
		evaluationRepo = repositories.NewInMemoryEvaluationRepo()
	}

	legacy, err := openLegacyStore(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, err
	}
	if closer, ok := legacy.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	var resolver services.PlatformIDResolver
	if cfg.Twitch.Enabled() {
		client, err := twitch.NewClient(twitch.Config{
			ClientID:     cfg.Twitch.ClientID,
			ClientSecret: cfg.Twitch.ClientSecret,
		}, twitch.NewTokenCache(time.Minute), &http.Client{Timeout: 15 * time.Second}, loggers.Component("Twitch"))
		if err != nil {
			app.Close()
			return nil, err
		}
		resolver = client
	}
	var chat services.ChatDirectory
	if cfg.Discord.Enabled() {
		dir, err := discord.NewGuildDirectory(cfg.Discord.BotToken, cfg.Discord.GuildID, loggers.Component("Discord"))
		if err != nil {
			app.Close()
			return nil, err
		}
		chat = dir
	}

	var audit services.AuditRecorder
	if writer := eventlog.NewWriter(cfg.EventLogDir, loggers.Component("EventLog")); writer.Enabled() {
		audit = writer
	}
	mergeEvents := services.NewMergeEventsDispatcher(cfg.MergeEventsWebhookURL, cfg.MergeEventsToken, nil, loggers.Component("MergeWebhook"))

	calc := scoringCfg.Calculator()
	app.Members = services.NewMemberService(memberRepo, resolver, chat, loggers.Component("Members"))
	app.Evaluations = services.NewEvaluationService(evaluationRepo, memberRepo, nil, calc, scoringCfg.Weights, audit, loggers.Component("Evaluations"))
	app.Engagement = services.NewEngagementService(memberRepo, app.Evaluations, loggers.Component("Engagement"))
	app.Duplicates = services.NewDuplicateService(memberRepo, app.Evaluations, audit, mergeEvents, loggers.Component("Duplicates"))
	app.Reconciliation = services.NewReconciliationService(legacy, cfg.Storage.Prefix, evaluationRepo, calc, scoringCfg.Weights, cfg.ReconcileConcurrency, audit, loggers.Component("Reconcile"))
	return app, nil
}

// openLegacyStore retorna nil quando nenhum backend está configurado; a
// reconciliação então reporta o store como indisponível.
func openLegacyStore(ctx context.Context, cfg config.StorageConfig) (storage.KeyValueStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case "sqlite":
		store, err := sqlitekv.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open legacy sqlite store: %w", err)
		}
		return store, nil
	case "s3":
		store, err := s3Storage.New(ctx, s3Storage.Config{
			Region:       cfg.Region,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			Bucket:       cfg.Bucket,
			BaseEndpoint: cfg.Endpoint,
			UsePathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("open legacy s3 store: %w", err)
		}
		return store, nil
	case "minio", "":
		store, err := minioStorage.New(ctx, minioStorage.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open legacy minio store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", storage.ErrNotConfigured, cfg.Provider)
	}
}
