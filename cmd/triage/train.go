package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/donapp/triage/internal/config"
	"github.com/donapp/triage/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier and persist the artifact bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrain()
	},
}

func runTrain() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bundle, err := training.Run(training.Options{
		DatasetPath: cfg.Model.DatasetPath,
		BundlePath:  cfg.Model.BundlePath,
		Trees:       cfg.Model.Trees,
		Seed:        cfg.Model.Seed,
		Out:         os.Stdout,
	})
	if errors.Is(err, training.ErrNoTrainingData) {
		printError("dataset has no usable rows")
		return err
	}
	if err != nil {
		printError("training failed: %v", err)
		return err
	}

	printSuccess("trained on %d classes, bundle at %s", bundle.Encoder.NumClasses(), cfg.Model.BundlePath)
	return nil
}
