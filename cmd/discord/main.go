package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/server-warden/internal/config"
	"github.com/keshon/server-warden/internal/discord"
	"github.com/keshon/server-warden/internal/logging"
	"github.com/keshon/server-warden/internal/storage"
	v "github.com/keshon/server-warden/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogPath)
	log.Info().Str("version", v.AppVersion).Msgf("starting %s", v.AppName)

	store, err := storage.New(cfg.StoragePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot := discord.NewBot(cfg, store, log)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("discord bot error")
		}
		cancel()
	case <-ctx.Done():
	}

	log.Info().Msg("discord bot exited cleanly")
}
