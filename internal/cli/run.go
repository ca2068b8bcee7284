package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vpgclub/clubbot/internal/api"
	"github.com/vpgclub/clubbot/internal/config"
	"github.com/vpgclub/clubbot/internal/factory"
	"github.com/vpgclub/clubbot/internal/platform/discord"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gateway, err := discord.NewGateway(cfg.Token, cfg.GuildID, logger)
	if err != nil {
		return err
	}
	client := discord.NewClient(gateway.Session(), cfg.GuildID, logger)

	app, err := factory.New(cfg, client, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Ops endpoints
	readiness := &api.Readiness{}
	serverCfg := api.DefaultServerConfig()
	if cfg.HTTPAddr != "" {
		serverCfg.Addr = cfg.HTTPAddr
	}
	server := api.NewServer(api.NewRouter(readiness), serverCfg, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("ops server error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Warn("ops server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	handlers := app.Bot.Handlers()
	baseReady := handlers.Ready
	handlers.Ready = func(ctx context.Context) {
		readiness.SetReady(true)
		baseReady(ctx)
	}

	logger.Info("starting gateway", slog.String("guild", cfg.GuildID))
	err = gateway.Run(ctx, handlers)
	readiness.SetReady(false)
	return err
}
