// Package cmd implements the imagectl command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/radif/imagegw/internal/app"
	"github.com/radif/imagegw/internal/config"
	"github.com/radif/imagegw/internal/logging"
	"github.com/radif/imagegw/internal/storage"
)

// NewRootCommand builds the imagectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "imagectl",
		Short:         "Operate the image store from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newProvisionCommand(),
		newUploadCommand(),
		newResolveCommand(),
		newDeleteCommand(),
		newTokenCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: loaded config and an open store.
type env struct {
	cfg    *config.Config
	store  *app.Storage
	logger *slog.Logger
}

func openEnv(cmd *cobra.Command) (*env, error) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level: %w", err)
	}
	cfg := config.Load()
	logger := logging.New(cmd.ErrOrStderr(), level, "text")

	// the server owns the index when IMAGE_INDEX_PATH is set
	store, err := app.OpenStorage(cfg, logger, app.WithoutIndex())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: store, logger: logger}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("close storage", "error", err)
	}
}

func namespaceFlag(cmd *cobra.Command) (storage.Namespace, error) {
	raw, err := cmd.Flags().GetString("namespace")
	if err != nil {
		return "", fmt.Errorf("failed to get namespace: %w", err)
	}
	return storage.ParseNamespace(raw)
}

func addNamespaceFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("namespace", "n", string(storage.Uploads), "image namespace (products, users, uploads, categories, placeholders)")
}
