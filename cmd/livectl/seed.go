package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/courses"
	"github.com/aura-webinar/liveclass/internal/livestate"
	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/pkg/database"
)

type seedOptions struct {
	owner        string
	participants []string
	in           time.Duration
	capacity     int
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run migrations and create a demo course with a schedule and admissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.owner, "owner", "", "owner user id (random when empty)")
	cmd.Flags().StringSliceVar(&opts.participants, "participant", nil, "participant user id (repeatable)")
	cmd.Flags().DurationVar(&opts.in, "in", 5*time.Minute, "schedule the session this far from now")
	cmd.Flags().IntVar(&opts.capacity, "capacity", 0, "max participants (0 = unlimited)")
	return cmd
}

func runSeed(cmd *cobra.Command, opts seedOptions) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	owner := uuid.New()
	if opts.owner != "" {
		if owner, err = parseID("owner", opts.owner); err != nil {
			return err
		}
	}
	participants := make([]uuid.UUID, 0, len(opts.participants))
	for _, p := range opts.participants {
		id, err := parseID("participant", p)
		if err != nil {
			return err
		}
		participants = append(participants, id)
	}

	if err := database.MigrateUp(e.cfg.Database.DSN(), e.logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := database.NewPostgresPool(ctx, e.cfg.Database.DSN(), e.cfg.Database.PoolOptions(), e.logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	profile := &models.CourseLiveProfile{CourseID: uuid.New(), OwnerID: owner}
	if opts.capacity > 0 {
		profile.Capacity = &opts.capacity
	}
	if err := livestate.NewRepository(pool).Create(ctx, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	repo := courses.NewRepository(pool)
	at := time.Now().Add(opts.in).UTC().Truncate(time.Minute)
	if err := repo.AddSchedule(ctx, &models.ScheduledSession{CourseID: profile.CourseID, ScheduledAt: at}); err != nil {
		return fmt.Errorf("add schedule: %w", err)
	}
	if err := repo.GrantAdmission(ctx, &models.Admission{CourseID: profile.CourseID, UserID: owner, Role: models.AdmissionOwner}); err != nil {
		return fmt.Errorf("admit owner: %w", err)
	}
	for _, p := range participants {
		if err := repo.GrantAdmission(ctx, &models.Admission{CourseID: profile.CourseID, UserID: p, Role: models.AdmissionParticipant}); err != nil {
			return fmt.Errorf("admit participant %s: %w", p, err)
		}
	}

	e.logger.Info("seeded course",
		zap.String("course_id", profile.CourseID.String()),
		zap.String("owner_id", owner.String()),
		zap.Int("participants", len(participants)),
		zap.Time("scheduled_at", at),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "course %s owner %s scheduled %s\n", profile.CourseID, owner, at.Format(time.RFC3339))
	return nil
}
