package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomrelay/internal/app"
	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "roomrelay",
		Short:        "Realtime room-based chat relay over WebSocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New("info", "console")

			cfg, path, err := config.Load(bootLogger, configPath, cmd.Flags())
			if err != nil {
				bootLogger.Error().Err(err).Msg("load config")
				return err
			}

			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(&cfg, logger)

			logger.Info().Str("addr", cfg.Addr).Str("config", path).Str("lobby", cfg.Lobby).Msg("starting roomrelay server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to the YAML config file")
	flags.String("addr", defaults.Addr, "HTTP listen address")
	flags.Duration("read-header-timeout", defaults.ReadHeaderTimeout, "HTTP read header timeout")
	flags.Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown timeout")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	flags.String("log-format", defaults.LogFormat, "log format: console or json")
	flags.String("lobby", defaults.Lobby, "room every client joins after identifying")
	flags.Int64("max-message-bytes", defaults.MaxMessageBytes, "maximum inbound WebSocket frame size")
	flags.Int("send-buffer", defaults.SendBuffer, "outbound events queued per connection before dropping")
	flags.Int("rate-limit-per-minute", defaults.RateLimitPerMinute, "inbound frames allowed per connection per minute (0 disables)")

	return cmd
}
