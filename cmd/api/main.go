package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crevid/internal/adapter/repo"
	"crevid/internal/cache"
	"crevid/internal/dispatch"
	"crevid/internal/domain"
	apphttp "crevid/internal/http"
	"crevid/internal/http/handlers"
	"crevid/internal/infra"
	"crevid/internal/infra/secrets"
	"crevid/internal/jobs"
	"crevid/internal/providers/filehost"
	"crevid/internal/providers/llm"
	"crevid/internal/settings"
	"crevid/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		boot := infra.NewLogger("development")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := infra.NewLogger(cfg.AppEnv)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	defer pool.Close()

	var jobCache cache.Cache
	if redisClient, err := infra.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache and rate limiting")
	} else {
		jobCache = cache.NewRedisCache(redisClient)
		defer func() {
			_ = redisClient.Close()
		}()
	}

	box, err := secrets.NewBox(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}

	contentRepo := repo.NewContentRepository(pool)
	jobRepo := repo.NewJobRepository(pool)
	mediaRepo := repo.NewMediaFileRepository(pool)
	folderRepo := repo.NewStorageFolderRepository(pool)
	settingsRepo := repo.NewSettingsRepository(pool)

	settingsSvc := settings.NewService(settingsRepo, box, logger)
	defaults := domain.DefaultSettings(
		cfg.OpenAIAPIKey,
		cfg.GoFileToken,
		cfg.QStashToken,
		cfg.QStashCurrentSigningKey,
		cfg.QStashNextSigningKey,
	)
	if err := settingsSvc.EnsureDefault(ctx, defaults); err != nil {
		logger.Fatal().Err(err).Msg("could not seed settings")
	}

	dispatcher, err := dispatch.NewQStashClient(dispatch.Options{
		BaseURL:   cfg.QStashBaseURL,
		TargetURL: cfg.APIBaseURL,
		Settings:  settingsSvc,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("could not build dispatcher")
	}

	generator, err := llm.NewOpenAIClient(llm.Options{
		Settings: settingsSvc,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("could not build llm client")
	}

	host, err := filehost.NewGoFileClient(filehost.Options{
		Settings: settingsSvc,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("could not build file host client")
	}

	manager := jobs.NewManager(jobRepo, dispatcher, jobCache, settingsSvc, logger)

	workers := &worker.Handlers{
		Jobs:     manager,
		Contents: contentRepo,
		Media:    mediaRepo,
		Folders:  folderRepo,
		LLM:      generator,
		Files:    host,
		Settings: settingsSvc,
		Logger:   logger,
	}

	app := &handlers.App{
		Contents: contentRepo,
		Media:    mediaRepo,
		Folders:  folderRepo,
		Jobs:     manager,
		Settings: settingsSvc,
		Config:   cfg,
		Logger:   logger,
	}

	router := apphttp.NewRouter(apphttp.RouterDeps{
		App:      app,
		Workers:  workers,
		Cache:    jobCache,
		Settings: settingsSvc,
		Config:   cfg,
		Logger:   logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
}
