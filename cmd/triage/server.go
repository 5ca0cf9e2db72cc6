package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/donapp/triage/internal/api"
	"github.com/donapp/triage/internal/artifacts"
	"github.com/donapp/triage/internal/config"
	"github.com/donapp/triage/internal/predictor"
	"github.com/donapp/triage/internal/recordlog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "triage version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return err
	}
	defer zap.L().Sync()

	if cfg.Auth.Token == "" {
		return fmt.Errorf("missing required config: API token. Set it via TRIAGE_AUTH_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing or stale bundle degrades the service instead of failing
	// startup; predictions report unavailable until retrained.
	engine := predictor.Load(cfg.Model.BundlePath)
	if !engine.Ready() {
		printWarning("model artifacts unavailable, run 'triage train' and restart")
	}

	reports, err := artifacts.NewManager(
		cfg.Reports.Dir,
		cfg.Reports.Retention(),
		cfg.Reports.SweepInterval(),
		cfg.Reports.MaxAge(),
	)
	if err != nil {
		return err
	}
	go reports.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Engine:      engine,
		Predictions: recordlog.New(cfg.Logs.PredictionsPath),
		Feedback:    recordlog.New(cfg.Logs.FeedbackPath),
		Reports:     reports,
		Auth:        api.TokenAuthenticator{Token: cfg.Auth.Token, User: "tecnico"},
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "triage listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
