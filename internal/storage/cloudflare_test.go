package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccount = "acct-123"
	testToken   = "token-abc"
)

// fakeImagesAPI is an in-memory stand-in for the remote image API and its
// delivery host.
type fakeImagesAPI struct {
	t *testing.T

	mu       sync.Mutex
	images   map[string][]byte
	uploads  int
	probes   int
	failWith int // non-zero forces every API call to answer with this status
	envelope string
}

func newFakeImagesAPI(t *testing.T) (*fakeImagesAPI, *httptest.Server) {
	f := &fakeImagesAPI{t: t, images: map[string][]byte{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeImagesAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	const apiPrefix = "/client/v4/accounts/" + testAccount + "/images/v1"

	switch {
	case r.Method == http.MethodHead && strings.HasPrefix(r.URL.Path, "/delivery/"):
		f.probes++
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/delivery/"), "/public")
		if _, ok := f.images[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && r.URL.Path == apiPrefix:
		f.uploads++
		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			_, _ = io.WriteString(w, `{"success":false}`)
			return
		}
		if f.envelope != "" {
			_, _ = io.WriteString(w, f.envelope)
			return
		}
		file, header, err := r.FormFile("file")
		if !assert.NoError(f.t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		var meta struct {
			ID string `json:"id"`
		}
		assert.NoError(f.t, json.Unmarshal([]byte(r.FormValue("metadata")), &meta))
		assert.NotEmpty(f.t, meta.ID)
		assert.True(f.t, strings.HasPrefix(header.Filename, meta.ID))

		remoteID := "cf-" + meta.ID
		f.images[remoteID] = data
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]string{"id": remoteID},
		})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, apiPrefix+"/"):
		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, apiPrefix+"/")
		if _, ok := f.images[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"errors":[{"code":5404,"message":"Image not found"}]}`)
			return
		}
		delete(f.images, id)
		_, _ = io.WriteString(w, `{"success":true,"result":{}}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeImagesAPI) stored(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.images[id]
	return data, ok
}

func newTestImagesAPI(srv *httptest.Server) *ImagesAPI {
	cfg := BackendConfig{
		AccountID:   testAccount,
		APIToken:    testToken,
		DeliveryURL: srv.URL + "/delivery/",
	}
	return NewImagesAPI(cfg, srv.URL+"/client/v4", srv.Client(), discardLogger())
}

func TestBackendConfig_Configured(t *testing.T) {
	full := BackendConfig{AccountID: "a", APIToken: "t", DeliveryURL: "https://imagedelivery.net/x"}
	assert.True(t, full.Configured())

	for name, cfg := range map[string]BackendConfig{
		"empty":          {},
		"no account":     {APIToken: "t", DeliveryURL: "d"},
		"no token":       {AccountID: "a", DeliveryURL: "d"},
		"no delivery":    {AccountID: "a", APIToken: "t"},
		"blank delivery": {AccountID: "a", APIToken: "t", DeliveryURL: "   "},
	} {
		assert.False(t, cfg.Configured(), name)
	}
}

func TestImagesAPI_DeliveryURL(t *testing.T) {
	api := NewImagesAPI(BackendConfig{DeliveryURL: "https://imagedelivery.net/hash/"}, "", nil, nil)
	assert.Equal(t, "https://imagedelivery.net/hash/abc/public", api.DeliveryURL("abc"))
}

func TestImagesAPI_Upload(t *testing.T) {
	fake, srv := newFakeImagesAPI(t)
	api := newTestImagesAPI(srv)

	img, err := api.Upload(context.Background(), pngData)
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, img.Backend)
	assert.True(t, strings.HasPrefix(img.ID, "cf-"))
	assert.Equal(t, srv.URL+"/delivery/"+img.ID+"/public", img.URL)

	data, ok := fake.stored(img.ID)
	require.True(t, ok)
	assert.Equal(t, pngData, data)
}

func TestImagesAPI_UploadFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		envelope string
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "malformed json", envelope: `{"success": tru`},
		{name: "unsuccessful envelope", envelope: `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`},
		{name: "missing id", envelope: `{"success":true,"result":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeImagesAPI(t)
			fake.failWith = tt.status
			fake.envelope = tt.envelope
			api := newTestImagesAPI(srv)

			_, err := api.Upload(context.Background(), jpegData)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRemote)
		})
	}
}

func TestImagesAPI_UploadNetworkError(t *testing.T) {
	_, srv := newFakeImagesAPI(t)
	api := newTestImagesAPI(srv)
	srv.Close()

	_, err := api.Upload(context.Background(), jpegData)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestImagesAPI_UploadNotConfigured(t *testing.T) {
	api := NewImagesAPI(BackendConfig{AccountID: "a"}, "", nil, discardLogger())
	_, err := api.Upload(context.Background(), jpegData)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestImagesAPI_Probe(t *testing.T) {
	_, srv := newFakeImagesAPI(t)
	api := newTestImagesAPI(srv)
	ctx := context.Background()

	img, err := api.Upload(ctx, jpegData)
	require.NoError(t, err)

	assert.True(t, api.Probe(ctx, img.ID))
	assert.False(t, api.Probe(ctx, "unknown"))

	srv.Close()
	assert.False(t, api.Probe(ctx, img.ID), "network failure is not a confirmation")
}

func TestImagesAPI_Delete(t *testing.T) {
	fake, srv := newFakeImagesAPI(t)
	api := newTestImagesAPI(srv)
	ctx := context.Background()

	img, err := api.Upload(ctx, jpegData)
	require.NoError(t, err)

	ok, err := api.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, stored := fake.stored(img.ID)
	assert.False(t, stored)

	ok, err = api.Delete(ctx, img.ID)
	assert.ErrorIs(t, err, ErrRemote)
	assert.False(t, ok)
}
