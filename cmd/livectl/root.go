package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/liveclass/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "livectl",
		Short:         "Operate the live session service",
		Long:          `Commands: migrate, seed, status, token, watch, recording.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newRecordingCmd())
	return root
}

// env bundles what every command needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &env{cfg: cfg, logger: newLogger()}, nil
}

func parseID(name, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return id, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
