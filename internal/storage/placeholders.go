package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/radif/imagegw/internal/imaging"
)

// Provisioner makes sure default assets exist on local storage so that
// resolution always has something to fall back to.
type Provisioner struct {
	local  *Local
	render func(label, ext string) ([]byte, error)
	logger *slog.Logger
}

// NewProvisioner creates a provisioner writing into local.
func NewProvisioner(local *Local, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{local: local, render: imaging.RenderPlaceholder, logger: logger}
}

// Ensure creates every namespace directory and each missing asset. An asset
// that cannot be rendered is written as an empty file. Existing files are
// left alone. Errors are logged per asset and never returned; the paths
// actually written are.
func (p *Provisioner) Ensure(ctx context.Context, defaults []DefaultAsset) []string {
	for _, ns := range Namespaces {
		dir := filepath.Join(p.local.Root(), string(ns))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			p.logger.Error("create image directory failed", "dir", dir, "error", err)
		}
	}

	var created []string
	for _, asset := range defaults {
		if ctx.Err() != nil {
			p.logger.Warn("placeholder provisioning interrupted", "error", ctx.Err())
			break
		}
		if path, ok := p.ensureOne(asset); ok {
			created = append(created, path)
		}
	}
	return created
}

func (p *Provisioner) ensureOne(asset DefaultAsset) (string, bool) {
	if asset.Filename == "" || filepath.Base(asset.Filename) != asset.Filename {
		p.logger.Error("invalid placeholder filename", "filename", asset.Filename)
		return "", false
	}

	path := p.local.Path(asset.Namespace, asset.Filename)
	if _, err := os.Stat(path); err == nil {
		return "", false
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.logger.Error("create placeholder directory failed", "path", path, "error", err)
		return "", false
	}

	ext := filepath.Ext(asset.Filename)
	data, err := p.render(strings.TrimSuffix(asset.Filename, ext), ext)
	if err != nil {
		p.logger.Warn("placeholder rendering failed, writing empty file", "path", path, "error", err)
		data = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			p.logger.Error("create placeholder failed", "path", path, "error", err)
		}
		return "", false
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		p.logger.Error("write placeholder failed", "path", path, "error", errors.Join(werr, cerr))
		return "", false
	}

	p.logger.Info("placeholder created", "path", path, "size", len(data))
	return path, true
}
