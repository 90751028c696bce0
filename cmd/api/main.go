package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitjournal/api/internal/app"
	"gitjournal/api/internal/config"
	"gitjournal/api/internal/digest"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/graphql"
	"gitjournal/api/internal/logging"
	"gitjournal/api/internal/session"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logging.NewLogger(os.Stderr, logging.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	if cfg.SessionSecret == "git-journal-dev-secret" {
		logger.Warn("using the development session secret; set GIT_JOURNAL_SESSION_SECRET")
	}

	sessions, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionSecret)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	gql := graphql.NewClient(cfg.GraphQLURL, graphql.WithHTTPClient(httpClient), graphql.WithLogger(logger))
	repo := discussion.NewRepository(gql, logger)
	digestClient := digest.NewClient(cfg.DigestURL, nil, logger)

	service := app.New(cfg, repo, digestClient, sessions, logger)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("git-journal API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SaveTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
