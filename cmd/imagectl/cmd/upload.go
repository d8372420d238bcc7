package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radif/imagegw/internal/app"
	"github.com/radif/imagegw/internal/imaging"
)

func newUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Store an image file and print its id and URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := namespaceFlag(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			data, err := imaging.Normalize(imaging.NamedStream{Name: args[0], Reader: f}, app.Limits(e.cfg))
			if err != nil {
				return err
			}

			img, err := e.store.Gateway.Upload(cmd.Context(), data, ns)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nurl: %s\n", img.ID, img.URL)
			return nil
		},
	}
	addNamespaceFlag(cmd)
	return cmd
}
