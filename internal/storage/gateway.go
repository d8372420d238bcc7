package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Gateway is the single entry point for storing, resolving and deleting
// images. Each call decides on its own whether the remote backend is usable;
// nothing is carried between calls.
type Gateway struct {
	local         *Local
	remote        Remote
	provisioner   *Provisioner
	defaults      []DefaultAsset
	remoteTimeout time.Duration
	probes        singleflight.Group
	logger        *slog.Logger
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithRemoteTimeout bounds every remote call. Zero leaves calls bounded only by
// the caller's context and the HTTP client.
func WithRemoteTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.remoteTimeout = d }
}

// WithDefaultAssets replaces DefaultAssets for EnsurePlaceholders.
func WithDefaultAssets(assets []DefaultAsset) Option {
	return func(g *Gateway) { g.defaults = assets }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// NewGateway wires the backends. remote may be nil for local-only operation.
func NewGateway(local *Local, remote Remote, opts ...Option) *Gateway {
	g := &Gateway{
		local:    local,
		remote:   remote,
		defaults: DefaultAssets,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.provisioner = NewProvisioner(local, g.logger)
	return g
}

// Upload stores data in ns, which must be one of Namespaces. The remote backend is tried first when fully
// configured; any remote failure falls back to local storage. Only a local
// failure is returned, wrapped in ErrUploadFailed.
func (g *Gateway) Upload(ctx context.Context, data []byte, ns Namespace) (StoredImage, error) {
	if !ns.Valid() {
		return StoredImage{}, fmt.Errorf("%w: %w: %q", ErrUploadFailed, ErrInvalidNamespace, ns)
	}

	if g.remoteConfigured() {
		img, err := g.uploadRemote(ctx, data)
		if err == nil {
			g.logger.Info("image stored", "backend", BackendRemote, "namespace", ns, "id", img.ID, "size", len(data))
			return img, nil
		}
		g.logger.Warn("remote upload failed, falling back to local storage", "namespace", ns, "error", err)
	} else {
		g.logger.Debug("remote storage not configured, using local storage", "namespace", ns)
	}

	img, err := g.local.Save(ctx, data, ns)
	if err != nil {
		g.logger.Error("local upload failed", "namespace", ns, "error", err)
		return StoredImage{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	g.logger.Info("image stored", "backend", BackendLocal, "namespace", ns, "id", img.ID, "size", len(data))
	return img, nil
}

// Resolve turns an identifier into a servable URL. Values that already are
// URLs or rooted paths are returned unchanged; an empty id or an unknown
// namespace yields def.
// With a configured remote the delivery URL is returned even when the probe
// cannot confirm it, so the URL for an id does not flip between backends.
func (g *Gateway) Resolve(ctx context.Context, id string, ns Namespace, def string) string {
	if isURLLike(id) {
		return id
	}
	if id == "" {
		return def
	}
	if !ns.Valid() {
		g.logger.Warn("resolve in unknown namespace, using default", "namespace", ns, "id", id)
		return def
	}

	if g.remoteConfigured() {
		deliveryURL := g.remote.DeliveryURL(id)
		if !g.probe(ctx, id) {
			g.logger.Debug("remote probe did not confirm image", "id", id, "url", deliveryURL)
		}
		return deliveryURL
	}

	u, err := g.local.Resolve(ctx, id, ns)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.logger.Error("local resolve failed", "namespace", ns, "id", id, "error", err)
		} else {
			g.logger.Debug("image not found, using default", "namespace", ns, "id", id, "default", def)
		}
		return def
	}
	return u
}

// Delete removes id from every backend that has it. It reports true when at
// least one backend confirmed a deletion; failures are logged, never returned.
func (g *Gateway) Delete(ctx context.Context, id string, ns Namespace) bool {
	id = identifierFrom(id)
	if id == "" {
		return false
	}
	if !ns.Valid() {
		g.logger.Warn("delete in unknown namespace ignored", "namespace", ns, "id", id)
		return false
	}

	deleted := false

	if g.remoteConfigured() {
		rctx, cancel := g.remoteContext(ctx)
		ok, err := g.remote.Delete(rctx, id)
		cancel()
		switch {
		case err != nil:
			g.logger.Warn("remote delete failed", "id", id, "error", err)
		case ok:
			g.logger.Info("image deleted", "backend", BackendRemote, "id", id)
			deleted = true
		}
	}

	ok, err := g.local.Delete(ctx, id, ns)
	switch {
	case err != nil:
		g.logger.Error("local delete failed", "namespace", ns, "id", id, "error", err)
	case ok:
		g.logger.Info("image deleted", "backend", BackendLocal, "namespace", ns, "id", id)
		deleted = true
	}

	return deleted
}

// EnsurePlaceholders creates any missing default asset and returns the paths
// it wrote.
func (g *Gateway) EnsurePlaceholders(ctx context.Context) []string {
	return g.provisioner.Ensure(ctx, g.defaults)
}

func (g *Gateway) remoteConfigured() bool {
	return g.remote != nil && g.remote.Configured()
}

func (g *Gateway) uploadRemote(ctx context.Context, data []byte) (StoredImage, error) {
	rctx, cancel := g.remoteContext(ctx)
	defer cancel()
	return g.remote.Upload(rctx, data)
}

// probe collapses concurrent probes of the same id into one request.
func (g *Gateway) probe(ctx context.Context, id string) bool {
	v, _, _ := g.probes.Do(id, func() (interface{}, error) {
		rctx, cancel := g.remoteContext(ctx)
		defer cancel()
		return g.remote.Probe(rctx, id), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (g *Gateway) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.remoteTimeout > 0 {
		return context.WithTimeout(ctx, g.remoteTimeout)
	}
	return context.WithCancel(ctx)
}

func isURLLike(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/")
}

// identifierFrom reduces a delivery or static URL to the identifier it
// carries: the last path segment, skipping a trailing "public" variant name.
func identifierFrom(s string) string {
	if !isURLLike(s) {
		return s
	}

	p := s
	if u, err := url.Parse(s); err == nil {
		p = u.Path
	}

	segments := strings.Split(strings.TrimRight(p, "/"), "/")
	last := segments[len(segments)-1]
	if last == "public" && len(segments) >= 2 {
		last = segments[len(segments)-2]
	}
	return last
}
