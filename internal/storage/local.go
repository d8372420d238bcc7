package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/radif/imagegw/internal/imaging"
)

// LocalURLPrefix is the HTTP path under which the images root is served.
const LocalURLPrefix = "/static/images"

// Local stores images under {root}/{namespace}/{id}{ext}. Lookups scan the
// namespace directory; an optional Index short-circuits the scan.
type Local struct {
	root   string
	index  *Index
	logger *slog.Logger
}

// NewLocal creates a local backend rooted at root (normally {staticRoot}/images).
// index may be nil.
func NewLocal(root string, index *Index, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{root: root, index: index, logger: logger}
}

// Root returns the directory holding all namespaces.
func (l *Local) Root() string {
	return l.root
}

// Path returns the on-disk location of filename inside ns.
func (l *Local) Path(ns Namespace, filename string) string {
	return filepath.Join(l.root, string(ns), filename)
}

// Save writes data as a new file in ns and returns its id and URL.
func (l *Local) Save(ctx context.Context, data []byte, ns Namespace) (StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return StoredImage{}, err
	}
	if !ns.Valid() {
		return StoredImage{}, fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}

	id := uuid.NewString()
	filename := id + imaging.DetectExtension(data)

	dir := filepath.Join(l.root, string(ns))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredImage{}, fmt.Errorf("%w: create directory %s: %w", ErrLocalIO, dir, err)
	}

	dest := filepath.Join(dir, filename)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: create file %s: %w", ErrLocalIO, dest, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(dest)
		return StoredImage{}, fmt.Errorf("%w: write file %s: %w", ErrLocalIO, dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return StoredImage{}, fmt.Errorf("%w: close file %s: %w", ErrLocalIO, dest, err)
	}

	if l.index != nil {
		if err := l.index.Put(ns, id, filename); err != nil {
			l.logger.Warn("index write failed", "namespace", ns, "id", id, "error", err)
		}
	}

	return StoredImage{ID: id, URL: localURL(ns, filename), Backend: BackendLocal}, nil
}

// Resolve returns the URL of the file stored for id in ns, or ErrNotFound.
func (l *Local) Resolve(ctx context.Context, id string, ns Namespace) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	filename, err := l.find(id, ns)
	if err != nil {
		return "", err
	}
	return localURL(ns, filename), nil
}

// Delete removes the file stored for id in ns. A missing file is not an
// error; it reports false.
func (l *Local) Delete(ctx context.Context, id string, ns Namespace) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filename, err := l.find(id, ns)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	p := l.Path(ns, filename)
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: remove file %s: %w", ErrLocalIO, p, err)
	}

	if l.index != nil {
		if err := l.index.Delete(ns, id); err != nil {
			l.logger.Warn("index delete failed", "namespace", ns, "id", id, "error", err)
		}
	}
	return true, nil
}

// find returns the name of the first file in ns whose name, up to the first
// dot, equals id, or whose whole name equals id.
func (l *Local) find(id string, ns Namespace) (string, error) {
	if !validID(id) {
		return "", ErrNotFound
	}

	if l.index != nil {
		if filename, ok := l.lookupIndex(id, ns); ok {
			return filename, nil
		}
	}

	dir := filepath.Join(l.root, string(ns))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: read directory %s: %w", ErrLocalIO, dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesID(e.Name(), id) {
			return e.Name(), nil
		}
	}
	return "", ErrNotFound
}

func (l *Local) lookupIndex(id string, ns Namespace) (string, bool) {
	filename, ok, err := l.index.Get(ns, id)
	if err != nil {
		l.logger.Warn("index read failed", "namespace", ns, "id", id, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	if _, err := os.Stat(l.Path(ns, filename)); err != nil {
		// stale entry: the file went away behind the index
		if err := l.index.Delete(ns, id); err != nil {
			l.logger.Warn("index delete failed", "namespace", ns, "id", id, "error", err)
		}
		return "", false
	}
	return filename, true
}

func matchesID(filename, id string) bool {
	if filename == id {
		return true
	}
	stem, _, found := strings.Cut(filename, ".")
	return found && stem == id
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}

func localURL(ns Namespace, filename string) string {
	return path.Join(LocalURLPrefix, string(ns), filename)
}
