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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/unsaidapp/unsaid/internal/cache"
	"github.com/unsaidapp/unsaid/internal/config"
	"github.com/unsaidapp/unsaid/internal/db"
	routes "github.com/unsaidapp/unsaid/internal/http"
	"github.com/unsaidapp/unsaid/internal/logging"
	"github.com/unsaidapp/unsaid/internal/metrics"
	"github.com/unsaidapp/unsaid/internal/store"
	"github.com/unsaidapp/unsaid/internal/ws"
	"github.com/unsaidapp/unsaid/models"
)

func main() {
	// Load .env before anything reads the environment. Production sets env
	// vars directly and runs without the file.
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("no .env file found, reading from environment")
	}

	conf, err := config.Load(os.Getenv("UNSAID_CONFIG"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(&conf.Logger)

	switch conf.Logger.Level {
	case "trace", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Open(conf.Database.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}

	logger.Info().Msg("running database migrations")
	if err := database.AutoMigrate(&models.ConfessionRow{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	m := metrics.New(conf.Metrics.Enabled)
	respCache := cache.New(&conf.Cache, logger)

	hub := ws.NewHub(logger)
	hub.OnClientCount = m.SetWSClients
	go hub.Run()

	env := &routes.Env{
		Store:   store.New(database, logger),
		Hub:     hub,
		Cache:   respCache,
		Metrics: m,
		Log:     logger,
	}

	router := gin.New()
	routes.SetupRoutes(router, env, conf)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	hub.Stop()

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("server exiting")
}
