package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/aura-webinar/liveclass/internal/livestate"
	"github.com/aura-webinar/liveclass/pkg/database"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <course-id>",
		Short: "Print a course's stored live profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			pool, err := database.NewPostgresPool(cmd.Context(), e.cfg.Database.DSN(), e.cfg.Database.PoolOptions(), e.logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			profile, err := livestate.NewRepository(pool).Get(cmd.Context(), courseID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		},
	}
}
