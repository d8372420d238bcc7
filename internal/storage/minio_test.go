package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the handful of S3 calls ObjectStore makes, keeping objects in memory.
type fakeS3 struct {
	mu        sync.Mutex
	bucket    string
	hasBucket bool
	policySet bool
	objects   map[string][]byte
	types     map[string]string
}

func newFakeS3(t *testing.T, bucket string) (*fakeS3, *httptest.Server) {
	f := &fakeS3{bucket: bucket, objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := strings.Trim(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(p, "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if key == "" {
		switch {
		case r.Method == http.MethodHead:
			if !f.hasBucket {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Query().Has("policy"):
			f.policySet = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut:
			f.hasBucket = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", f.types[key])
		w.Header().Set("Content-Length", strconv.Itoa(len(f.objects[key])))
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestObjectStore(t *testing.T, srv *httptest.Server, bucket string) *ObjectStore {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	store, err := NewObjectStore(ObjectStoreConfig{
		Endpoint:   u.Host,
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		Bucket:     bucket,
		PublicBase: "http://cdn.local/" + bucket + "/",
		Region:     "us-east-1",
	}, discardLogger())
	require.NoError(t, err)
	return store
}

func TestObjectStoreConfig_Configured(t *testing.T) {
	full := ObjectStoreConfig{Endpoint: "e", AccessKey: "a", SecretKey: "s", Bucket: "b", PublicBase: "p"}
	assert.True(t, full.Configured())

	partial := full
	partial.PublicBase = ""
	assert.False(t, partial.Configured())

	store, err := NewObjectStore(partial, nil)
	require.NoError(t, err)
	assert.False(t, store.Configured())
	assert.False(t, store.Probe(context.Background(), "x"))

	_, err = store.Upload(context.Background(), jpegData)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestObjectStore_UploadProbeDelete(t *testing.T) {
	fake, srv := newFakeS3(t, "images")
	store := newTestObjectStore(t, srv, "images")
	ctx := context.Background()

	img, err := store.Upload(ctx, pngData)
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, img.Backend)
	assert.Equal(t, "http://cdn.local/images/"+img.ID, img.URL)

	fake.mu.Lock()
	assert.True(t, fake.hasBucket, "bucket created on first upload")
	assert.True(t, fake.policySet, "public-read policy applied")
	assert.Equal(t, "image/png", fake.types[img.ID])
	fake.mu.Unlock()

	assert.True(t, store.Probe(ctx, img.ID))
	assert.False(t, store.Probe(ctx, "missing"))

	ok, err := store.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
