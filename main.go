package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/api"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/usecase"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/conf"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/data"
)

func main() {
	// .env is optional, environment variables win either way
	_ = godotenv.Load()

	config := conf.LoadFromEnv()

	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	repos, err := data.NewRepositories(context.Background(), config.Accounts.DBPath, config.Device.ToDeviceInfo(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open account store")
	}

	resolver := usecase.NewResolverUsecase(config.Telegram.DialogPageSize, log)
	pool := usecase.NewPoolUsecase(repos.Accounts, repos.Clients, resolver, config.Telegram.ConnectRetries, log)
	locator := usecase.NewLocatorUsecase(pool, resolver, config.Telegram.LocatorWindow)
	auth := usecase.NewAuthUsecase(repos.Accounts, repos.Clients, pool, log)
	chats := usecase.NewChatUsecase(pool, resolver, locator, config.Telegram.DialogPageSize)
	unread := usecase.NewUnreadUsecase(pool, resolver, config.Telegram.DialogPageSize, log)

	server := api.NewServer(auth, chats, unread, config.Server.ListenAddr, log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	// Stop accepting requests first, then drain the connection pool, all
	// bounded by one deadline.
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("server shutdown failed")
	}
	pool.DisconnectAll(ctx)

	log.Info().Msg("gateway stopped")
}
