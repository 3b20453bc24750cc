package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/logging"
	"github.com/ravipandeydu/interview-pro-sub002/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr      string
	flagJWTSecret string
	flagPresence  string
	flagRedisAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the room coordination service",
	Long: `Run the service that introduces participants of a room to each other and
relays their connection negotiation. Media never passes through it.

Examples:
  interviewpro serve --addr :8080 --jwt-secret s3cret
  interviewpro serve --presence redis --redis-addr localhost:6379`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(config.ServerOptions{
			ConfigFile: flagConfig,
			Addr:       flagAddr,
			JWTSecret:  flagJWTSecret,
			Presence:   flagPresence,
			RedisAddr:  flagRedisAddr,
			LogLevel:   flagLogLevel,
		})
		if err != nil {
			return err
		}
		logging.Init(cfg.LogLevel, slog.LevelInfo)
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	logger := logging.Component("server")

	presence, err := server.NewPresence(ctx, cfg)
	if err != nil {
		return err
	}
	defer presence.Close()

	if cfg.JWTSecret == "" {
		logger.Warn("JWT secret not set, accepting anonymous participants")
	}

	hub := server.NewHub(presence, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(hub, server.NewAuthenticator(cfg.JWTSecret), cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr, "presence", cfg.Presence)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&flagJWTSecret, "jwt-secret", "", "HMAC secret for access tokens; empty disables authentication")
	serveCmd.Flags().StringVar(&flagPresence, "presence", "", "Presence store: memory or redis")
	serveCmd.Flags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for the redis presence store")
}
