// README: Entry point; loads config, wires services, starts HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bloodlink/internal/config"
	"bloodlink/internal/geocode"
	httptransport "bloodlink/internal/http"
	"bloodlink/internal/infra"
	"bloodlink/internal/logging"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/modules/response"
	"bloodlink/internal/notify"
	"bloodlink/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	pg := store.NewPostgres(dbPool)
	geoIndex := matching.NewIndex(redisClient)

	var geocoder request.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := geocode.NewService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		geocoder = g
	}

	dispatcher := notify.NewDispatcher(
		notify.NewSMTPSender(cfg.Notify.SMTPAddr, cfg.Notify.SMTPFrom),
		cfg.Notify.QueueSize,
		cfg.Notify.WorkerCount,
		logger,
	)
	defer dispatcher.Close()

	profileSvc := profile.NewService(pg, geoIndex, logger)
	matchingSvc := matching.NewService(pg, pg, geoIndex, logger)
	requestSvc := request.NewService(pg, matchingSvc, geoIndex, geocoder, dispatcher, request.Config{
		FanoutRadiusKm: cfg.Matching.FanoutRadiusKm,
		FanoutLimit:    cfg.Matching.FanoutLimit,
	}, logger)
	responseSvc := response.NewService(pg, dispatcher, logger)

	handler := httptransport.NewRouter(profileSvc, matchingSvc, requestSvc, responseSvc, cfg.Auth.JWTSecret, logger)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
}
