package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/push"
	"github.com/dukerupert/nudge/internal/server"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the API, the live alert socket and the email sweeps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is required (set NUDGE_JWT_SECRET)")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
	})
	if !pushSvc.Configured() {
		logger.Info("VAPID keys not set, alerts go to open sockets only")
	}

	srv := server.New(db, server.Config{
		Verifier:        auth.NewVerifier(cfg.JWTSecret),
		Push:            pushSvc,
		MonitorInterval: cfg.Monitor.Interval,
		RatePerSecond:   cfg.API.RatePerSecond,
		RateBurst:       cfg.API.Burst,
	}, logger)
	defer srv.Close()

	if err := srv.StartBackground(ctx); err != nil {
		logger.Error("start background monitors", "error", err)
	}

	sweeper := newSweeper(cfg, db, logger)
	if _, err := sweeper.Start(); err != nil {
		return err
	}

	go cleanupLoop(ctx, srv)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: it would also cut long-lived alert sockets.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("nudge listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Error("sweep shutdown", "error", err)
	}
	return nil
}

// cleanupLoop drops idle rate-limit buckets until ctx is done.
func cleanupLoop(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RateLimiter().Cleanup(10 * time.Minute)
		}
	}
}

