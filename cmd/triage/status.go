package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/donapp/triage/internal/classifier"
	"github.com/donapp/triage/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show triage system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	if resp, err := client.Get(healthURL); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if bundle, err := classifier.LoadBundle(cfg.Model.BundlePath); err != nil {
		printStatus("Model", "not trained (%s)", cfg.Model.BundlePath)
	} else {
		printStatus("Model", "trained %s, classes %v",
			bundle.TrainedAt.Format(time.RFC3339), bundle.Encoder.Classes)
	}

	printStatus("Dataset", "%s", cfg.Model.DatasetPath)
	printStatus("Prediction log", "%s", cfg.Logs.PredictionsPath)
	printStatus("Feedback log", "%s", cfg.Logs.FeedbackPath)
	printStatus("Reports dir", "%s", cfg.Reports.Dir)
	return nil
}
