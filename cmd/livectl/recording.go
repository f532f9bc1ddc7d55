package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aura-webinar/liveclass/internal/recordings"
	"github.com/aura-webinar/liveclass/pkg/database"
	"github.com/aura-webinar/liveclass/pkg/storage"
)

func newRecordingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Manage session recordings",
	}

	var (
		title  string
		commit bool
	)
	upload := &cobra.Command{
		Use:   "upload <course-id> <session-id> <file>",
		Short: "Upload a recording file to S3 and optionally commit its reference",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			sessionID, err := parseID("session id", args[1])
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			if e.cfg.AWS.Region == "" {
				return fmt.Errorf("AWS_REGION is required for uploads")
			}

			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s3Client, err := storage.NewS3(ctx, storage.S3Config{
				Region:               e.cfg.AWS.Region,
				AccessKeyID:          e.cfg.AWS.AccessKeyID,
				SecretAccessKey:      e.cfg.AWS.SecretAccessKey,
				RecordingsBucket:     e.cfg.AWS.RecordingsBucket,
				PresignExpireMinutes: e.cfg.AWS.PresignExpireMinutes,
			}, e.logger)
			if err != nil {
				return err
			}
			url, _, err := s3Client.UploadRecording(ctx, courseID.String(), sessionID.String(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", url)
			if !commit {
				return nil
			}

			pool, err := database.NewPostgresPool(ctx, e.cfg.Database.DSN(), e.cfg.Database.PoolOptions(), e.logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			// The S3 client derives the same URL and key, so the reference carries the key for presigning.
			finalizer := recordings.NewFinalizer(recordings.NewRepository(pool), s3Client, nil, e.cfg.Live.CallTimeout, e.logger)
			ref, err := finalizer.Commit(ctx, recordings.CommitRequest{
				CourseID:  courseID,
				SessionID: sessionID,
				Title:     title,
				EndedAt:   time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %q for session %s key %s\n", ref.Title, ref.SessionID, ref.S3Key)
			return nil
		},
	}
	upload.Flags().StringVar(&title, "title", "", "recording title (defaults to the session date)")
	upload.Flags().BoolVar(&commit, "commit", true, "commit the recording reference after upload")

	cmd.AddCommand(upload)
	return cmd
}
