package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/livesync"
	"github.com/aura-webinar/liveclass/internal/realtime"
	"github.com/aura-webinar/liveclass/pkg/redis"
)

type watchOptions struct {
	api      string
	token    string
	interval time.Duration
	push     bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch <course-id>",
		Short: "Follow a course's live status and print go-live and ended edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.api, "api", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token (see livectl token)")
	cmd.Flags().DurationVar(&opts.interval, "interval", livesync.DefaultInterval, "poll interval")
	cmd.Flags().BoolVar(&opts.push, "push", false, "subscribe to Redis pushes instead of polling")
	return cmd
}

func runWatch(cmd *cobra.Command, rawID string, opts watchOptions) error {
	courseID, err := parseID("course id", rawID)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := livesync.NewHTTPStatusSource(opts.api, opts.token, nil)
	var sub livesync.Subscription
	if opts.push {
		rdb, err := redis.NewClient(ctx, e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB, e.logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sub, err = livesync.SubscribePush(ctx, realtime.NewRedisPubSub(rdb.Client, e.logger), source, courseID)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	} else {
		sub = livesync.NewPoller(source, opts.interval, e.logger).Subscribe(ctx, courseID)
	}

	e.logger.Info("watching course", zap.String("course_id", courseID.String()), zap.Bool("push", opts.push))
	err = livesync.Watch(ctx, sub, printReactions(cmd.OutOrStdout()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printReactions(w io.Writer) livesync.Reactions {
	return livesync.Reactions{
		OnLive: func(ev livesync.Event) {
			fmt.Fprintf(w, "%s LIVE %s\n", ev.At.Format(time.RFC3339), ev.CourseID)
		},
		OnEnded: func(ev livesync.Event) {
			fmt.Fprintf(w, "%s ENDED %s\n", ev.At.Format(time.RFC3339), ev.CourseID)
		},
	}
}
