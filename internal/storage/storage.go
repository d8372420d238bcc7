// Package storage persists images either to a remote CDN-backed image service
// or to the local static directory, and resolves identifiers back to URLs.
// The Gateway picks the backend per call; callers only ever see an id and a URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRemote covers any failure talking to the remote backend.
	ErrRemote = errors.New("remote storage error")

	// ErrLocalIO is returned when the local filesystem cannot be written.
	ErrLocalIO = errors.New("local storage error")

	// ErrNotFound is returned when an identifier matches no stored file.
	ErrNotFound = errors.New("image not found")

	// ErrUploadFailed is returned by Gateway.Upload when no backend accepted the image.
	ErrUploadFailed = errors.New("upload failed")

	// ErrInvalidNamespace is returned for a namespace outside the fixed set.
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// Namespace is a logical bucket that partitions stored images by purpose.
type Namespace string

const (
	Products     Namespace = "products"
	Users        Namespace = "users"
	Uploads      Namespace = "uploads"
	Categories   Namespace = "categories"
	Placeholders Namespace = "placeholders"

	// RootNamespace addresses the images root itself. Only default assets
	// (the site logo) live there; it is not accepted from callers.
	RootNamespace Namespace = ""
)

// Namespaces lists every caller-addressable namespace.
var Namespaces = []Namespace{Products, Users, Uploads, Categories, Placeholders}

// ParseNamespace validates a namespace name received from outside.
func ParseNamespace(s string) (Namespace, error) {
	ns := Namespace(strings.ToLower(strings.TrimSpace(s)))
	if !ns.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, s)
	}
	return ns, nil
}

// Valid reports whether ns is one of Namespaces. RootNamespace is not.
func (ns Namespace) Valid() bool {
	for _, known := range Namespaces {
		if ns == known {
			return true
		}
	}
	return false
}

// BackendKind tells which backend served an upload.
type BackendKind string

const (
	BackendRemote BackendKind = "remote"
	BackendLocal  BackendKind = "local"
)

// StoredImage is the result of a successful upload. ID is the only handle a
// caller should keep.
type StoredImage struct {
	ID      string      `json:"id"`
	URL     string      `json:"url"`
	Backend BackendKind `json:"-"`
}

// BackendConfig holds the remote image API credentials. The remote backend is
// used only when every field is set.
type BackendConfig struct {
	AccountID   string
	APIToken    string
	DeliveryURL string
}

// Configured reports whether all credentials are present. A partial
// configuration counts as none.
func (c BackendConfig) Configured() bool {
	return strings.TrimSpace(c.AccountID) != "" &&
		strings.TrimSpace(c.APIToken) != "" &&
		strings.TrimSpace(c.DeliveryURL) != ""
}

// Remote is a CDN-backed image store.
type Remote interface {
	// Configured reports whether the backend has everything it needs to be called.
	Configured() bool
	// Upload stores data and returns the remote identifier and delivery URL.
	Upload(ctx context.Context, data []byte) (StoredImage, error)
	// Probe reports whether the delivery URL for id answered 200. Failures are false.
	Probe(ctx context.Context, id string) bool
	// Delete removes id and reports whether the service confirmed it.
	Delete(ctx context.Context, id string) (bool, error)
	// DeliveryURL builds the public URL for id without any network call.
	DeliveryURL(id string) string
}

// DefaultAsset is a file guaranteed to exist locally once placeholders have
// been provisioned.
type DefaultAsset struct {
	Namespace Namespace
	Filename  string
}

// DefaultAssets is the built-in set of placeholders.
var DefaultAssets = []DefaultAsset{
	{Namespace: Users, Filename: "default-avatar.png"},
	{Namespace: Products, Filename: "product-placeholder.jpg"},
	{Namespace: Placeholders, Filename: "no-image.png"},
	{Namespace: RootNamespace, Filename: "logo.png"},
}

// URL returns the path under which the asset is served.
func (a DefaultAsset) URL() string {
	return localURL(a.Namespace, a.Filename)
}
