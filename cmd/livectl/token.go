package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aura-webinar/liveclass/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTService(e.cfg.JWT.Secret, e.cfg.JWT.ExpireHours).Generate(userID, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", "", "role claim")
	return cmd
}
