package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/bootstrap"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/controllers"
	"github.com/Redshadow31/tenf-v2-sub004/internal/config"
	httpPlatform "github.com/Redshadow31/tenf-v2-sub004/internal/platform/http"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loggers := logger.New(cfg.LogLevel)

	loggers.App.Infof("configuration: env=%s driver=%s storage=%s", cfg.Env, cfg.DBDriver, cfg.Storage.Provider)
	if cfg.MasterToken == "" {
		loggers.App.Warnf("API_MASTER_TOKEN is empty; every protected route will answer 401/403")
	}

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, loggers)
	if err != nil {
		log.Fatalf("initialization error: %v", err)
	}
	defer app.Close()

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		EvaluationCtrl:     controllers.NewEvaluationController(app.Evaluations),
		EngagementCtrl:     controllers.NewEngagementController(app.Engagement),
		MemberCtrl:         controllers.NewMemberController(app.Members, app.Duplicates),
		ReconciliationCtrl: controllers.NewReconciliationController(app.Reconciliation),
		Logger:             loggers.HTTP,
		SwaggerEnable:      cfg.SwaggerEnable,
		MasterToken:        cfg.MasterToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		loggers.App.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	loggers.App.Infof("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
