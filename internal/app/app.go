// Package app wires configuration into a ready storage gateway for the
// server and the CLI.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/radif/imagegw/internal/config"
	"github.com/radif/imagegw/internal/imaging"
	"github.com/radif/imagegw/internal/storage"
)

// Storage owns the gateway and the resources behind it.
type Storage struct {
	Gateway *storage.Gateway
	Local   *storage.Local

	index *storage.Index
}

// Option adjusts OpenStorage.
type Option func(*options)

type options struct {
	skipIndex bool
}

// WithoutIndex makes local lookups scan even when IMAGE_INDEX_PATH is set.
// badger allows a single process per index directory.
func WithoutIndex() Option {
	return func(o *options) { o.skipIndex = true }
}

// OpenStorage builds the local backend (with its optional index), the remote
// selected by cfg.RemoteProvider and the gateway on top of them.
func OpenStorage(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Storage, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	remote, err := newRemote(cfg, logger)
	if err != nil {
		return nil, err
	}

	var index *storage.Index
	if cfg.IndexPath != "" && o.skipIndex {
		logger.Debug("local image index skipped, using directory scans", "path", cfg.IndexPath)
	}
	if cfg.IndexPath != "" && !o.skipIndex {
		index, err = storage.OpenIndex(cfg.IndexPath)
		if err != nil {
			return nil, err
		}
		logger.Info("local image index enabled", "path", cfg.IndexPath)
	}

	local := storage.NewLocal(cfg.ImagesRoot(), index, logger)
	gw := storage.NewGateway(local, remote,
		storage.WithRemoteTimeout(cfg.RemoteTimeout),
		storage.WithDefaultAssets(cfg.DefaultAssets()),
		storage.WithLogger(logger),
	)

	if remote.Configured() {
		logger.Info("remote image storage configured", "provider", cfg.RemoteProvider)
	} else {
		logger.Info("remote image storage not configured, images are kept on local disk", "root", cfg.ImagesRoot())
	}

	return &Storage{Gateway: gw, Local: local, index: index}, nil
}

// Close releases the index, if one was opened.
func (s *Storage) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// Limits returns the upload limits configured for the API.
func Limits(cfg *config.Config) imaging.Limits {
	return imaging.Limits{MaxSize: cfg.MaxUploadSize, AllowedExtensions: cfg.AllowedExtensions}
}

func newRemote(cfg *config.Config, logger *slog.Logger) (storage.Remote, error) {
	switch cfg.RemoteProvider {
	case config.ProviderImagesAPI, "":
		client := &http.Client{Timeout: cfg.RemoteTimeout}
		return storage.NewImagesAPI(cfg.Remote, cfg.ImagesAPIBase, client, logger), nil
	case config.ProviderS3:
		store, err := storage.NewObjectStore(cfg.ObjectStore, logger)
		if err != nil {
			return nil, fmt.Errorf("object storage init failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown REMOTE_PROVIDER %q", cfg.RemoteProvider)
	}
}
