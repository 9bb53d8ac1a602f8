package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"helpdesk-live/internal/audit"
	"helpdesk-live/internal/auth"
	"helpdesk-live/internal/config"
	"helpdesk-live/internal/history"
	"helpdesk-live/internal/signaling"
	"helpdesk-live/internal/voicenotes"
	"helpdesk-live/pkg/logger"
	"helpdesk-live/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.App.Env)
	log.Info("starting helpdesk-live api", "env", cfg.App.Env, "addr", cfg.HTTPAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authMgr, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return err
	}

	db, err := utils.OpenPostgres(ctx, utils.PostgresConfig{DSN: cfg.PostgresDSN()})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		return err
	}
	defer rdb.Close()

	historyRepo := history.NewPostgresRepo(db)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		return err
	}
	historySvc := history.NewService(historyRepo, logger.Component(log, "history"))

	auditSvc := audit.NewService(audit.NewMemoryRepo())

	callRepo := signaling.NewRedisRepo(rdb, cfg.Signaling.SessionTTL)
	callSvc := signaling.NewService(callRepo, auditSvc, logger.Component(log, "signaling")).
		WithArchiver(historySvc)

	disk, err := voicenotes.NewDiskStore(cfg.Notes.StorageDir)
	if err != nil {
		return err
	}
	notesSvc := voicenotes.NewService(nil, disk, voicenotes.NewMemoryRepo(), logger.Component(log, "voicenotes"))

	router := newRouter(log, authMgr,
		signaling.Handlers{Service: callSvc},
		&history.Handlers{Service: historySvc},
		&voicenotes.Handlers{Service: notesSvc, Disk: disk},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
