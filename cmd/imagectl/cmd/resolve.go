package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Print the servable URL for an image id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := namespaceFlag(cmd)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			def := e.cfg.DefaultURL(ns)
			if cmd.Flags().Changed("default") {
				def, _ = cmd.Flags().GetString("default")
			}

			fmt.Fprintln(cmd.OutOrStdout(), e.store.Gateway.Resolve(cmd.Context(), args[0], ns, def))
			return nil
		},
	}
	addNamespaceFlag(cmd)
	cmd.Flags().String("default", "", "fallback URL (defaults to the namespace placeholder)")
	return cmd
}
