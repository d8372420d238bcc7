package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radif/imagegw/internal/auth"
	"github.com/radif/imagegw/internal/config"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the upload and delete routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := cmd.Flags().GetString("subject")
			if err != nil {
				return fmt.Errorf("failed to get subject: %w", err)
			}
			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return fmt.Errorf("failed to get ttl: %w", err)
			}

			tok, err := auth.IssueToken(config.Load().JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("subject", "imagectl", "token subject")
	cmd.Flags().Duration("ttl", auth.DefaultTTL, "token lifetime")
	return cmd
}
