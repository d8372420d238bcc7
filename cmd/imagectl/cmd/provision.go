package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvisionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create the namespace directories and any missing default images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			created := e.store.Gateway.EnsurePlaceholders(cmd.Context())
			for _, p := range created {
				fmt.Fprintln(cmd.OutOrStdout(), "created", p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d default image(s) created under %s\n", len(created), e.store.Local.Root())
			return nil
		},
	}
}
