// Package main is the procledger server entrypoint: it wires configuration,
// logging, the version store, the audit pipeline, the event hub, and the
// HTTP API, then runs until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/procledger/procledger/internal/api"
	"github.com/procledger/procledger/internal/config"
	"github.com/procledger/procledger/internal/diff"
	"github.com/procledger/procledger/internal/service"
	"github.com/procledger/procledger/internal/store"
	"github.com/procledger/procledger/internal/ws"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := store.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	auditSvc := service.NewAuditService(repos.Audit, log)
	auditWorker := service.NewAuditWorker(auditSvc, log, cfg.AuditQueueSize)
	hub := ws.NewHub(log)
	versionSvc := service.NewVersionService(repos.Versions, diff.NewEngine(), auditWorker, hub, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:          log,
		Hub:          hub,
		Versions:     versionSvc,
		Audit:        auditSvc,
		HealthCheck:  repos.HealthCheck,
		CORSOrigins:  cfg.CORSOrigins,
		Version:      version,
		StoreBackend: cfg.StoreBackend,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// The worker context outlives ctx so the queue drains after the HTTP
	// server stops accepting requests.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(workerCtx)
		return nil
	})

	g.Go(func() error {
		auditWorker.Run(workerCtx)
		return nil
	})

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"backend": cfg.StoreBackend,
			"version": version,
		}).Info("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}

		// Stop the hub and audit worker after in-flight requests finish;
		// cancelling workerCtx triggers their drain paths.
		stopWorkers()

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server stopped")

	return nil
}
