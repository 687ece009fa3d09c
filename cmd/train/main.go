package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pathpioneer/config"
	"pathpioneer/gbm"
	"pathpioneer/training"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := training.NewSource(cfg)
	if err != nil {
		logger.Fatalf("Failed to open training source: %v", err)
	}
	defer closeSource()

	params := gbm.DefaultParams()
	params.NEstimators = cfg.Training.NEstimators
	params.LearningRate = cfg.Training.LearningRate
	params.MaxDepth = cfg.Training.MaxDepth
	params.Jobs = cfg.Training.Jobs
	params.Seed = uint64(cfg.Training.Seed)

	trainer := training.NewTrainer(source, training.Options{
		ArtifactsDir: cfg.Artifacts.Dir,
		TestFraction: cfg.Training.TestFraction,
		Params:       params,
		ColumnMap:    cfg.Training.ColumnMap,
	}, logger)

	report, err := trainer.Run(ctx)
	if err != nil {
		logger.Fatalf("Training failed: %v", err)
	}
	fmt.Printf("MAE (km/h): %.3f\n", report.MAE)
	fmt.Printf("train rows: %d, test rows: %d, model version: %s\n", report.TrainRows, report.TestRows, report.ModelVersion)
}
