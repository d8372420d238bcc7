package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/radif/imagegw/internal/imaging"
)

// DefaultImagesAPIBase is the production endpoint of the image API.
const DefaultImagesAPIBase = "https://api.cloudflare.com/client/v4"

// maxEnvelopeSize caps how much of an API response body is read.
const maxEnvelopeSize = 1 << 20

// ImagesAPI is a Remote backed by the Cloudflare Images HTTP API.
type ImagesAPI struct {
	cfg     BackendConfig
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

// NewImagesAPI creates the client. An empty apiBase selects
// DefaultImagesAPIBase; a nil client selects http.DefaultClient.
func NewImagesAPI(cfg BackendConfig, apiBase string, client *http.Client, logger *slog.Logger) *ImagesAPI {
	if apiBase == "" {
		apiBase = DefaultImagesAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImagesAPI{
		cfg:     cfg,
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  client,
		logger:  logger,
	}
}

type apiEnvelope struct {
	Success bool `json:"success"`
	Result  struct {
		ID string `json:"id"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e apiEnvelope) errorText() string {
	if len(e.Errors) == 0 {
		return "success=false"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, er := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d %s", er.Code, er.Message))
	}
	return strings.Join(msgs, "; ")
}

// Configured reports whether account id, token and delivery URL are all set.
func (c *ImagesAPI) Configured() bool {
	return c.cfg.Configured()
}

// DeliveryURL returns {deliveryUrl}/{id}/public.
func (c *ImagesAPI) DeliveryURL(id string) string {
	return strings.TrimRight(c.cfg.DeliveryURL, "/") + "/" + url.PathEscape(id) + "/public"
}

// Upload posts data as a multipart form with a freshly generated id in the
// metadata field.
func (c *ImagesAPI) Upload(ctx context.Context, data []byte) (StoredImage, error) {
	if !c.Configured() {
		return StoredImage{}, fmt.Errorf("%w: not configured", ErrRemote)
	}

	id := uuid.NewString()
	ext := imaging.DetectExtension(data)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s%s"`, id, ext))
	header.Set("Content-Type", imaging.ContentType(ext))
	part, err := mw.CreatePart(header)
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: build form: %w", ErrRemote, err)
	}
	if _, err := part.Write(data); err != nil {
		return StoredImage{}, fmt.Errorf("%w: build form: %w", ErrRemote, err)
	}

	metadata, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: encode metadata: %w", ErrRemote, err)
	}
	if err := mw.WriteField("metadata", string(metadata)); err != nil {
		return StoredImage{}, fmt.Errorf("%w: build form: %w", ErrRemote, err)
	}
	if err := mw.Close(); err != nil {
		return StoredImage{}, fmt.Errorf("%w: build form: %w", ErrRemote, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imagesEndpoint(), &body)
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: new request: %w", ErrRemote, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	env, err := c.do(req)
	if err != nil {
		return StoredImage{}, err
	}
	if env.Result.ID == "" {
		return StoredImage{}, fmt.Errorf("%w: response carries no image id", ErrRemote)
	}

	c.logger.Debug("remote upload accepted", "local_id", id, "remote_id", env.Result.ID)
	return StoredImage{ID: env.Result.ID, URL: c.DeliveryURL(env.Result.ID), Backend: BackendRemote}, nil
}

// Probe issues a HEAD against the delivery URL of id.
func (c *ImagesAPI) Probe(ctx context.Context, id string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.DeliveryURL(id), nil)
	if err != nil {
		return false
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("remote probe failed", "id", id, "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Delete removes id from the image API.
func (c *ImagesAPI) Delete(ctx context.Context, id string) (bool, error) {
	if !c.Configured() {
		return false, fmt.Errorf("%w: not configured", ErrRemote)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.imagesEndpoint()+"/"+url.PathEscape(id), nil)
	if err != nil {
		return false, fmt.Errorf("%w: new request: %w", ErrRemote, err)
	}
	c.authorize(req)

	if _, err := c.do(req); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ImagesAPI) imagesEndpoint() string {
	return c.apiBase + "/accounts/" + url.PathEscape(c.cfg.AccountID) + "/images/v1"
}

func (c *ImagesAPI) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
}

// do sends req and decodes a successful envelope. Anything else is ErrRemote.
func (c *ImagesAPI) do(req *http.Request) (apiEnvelope, error) {
	var env apiEnvelope

	resp, err := c.client.Do(req)
	if err != nil {
		return env, fmt.Errorf("%w: %s %s: %w", ErrRemote, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize))
	if err != nil {
		return env, fmt.Errorf("%w: read response: %w", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return env, fmt.Errorf("%w: %s %s: status %d: %s", ErrRemote, req.Method, req.URL.Path, resp.StatusCode, truncate(string(raw), 200))
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: decode response: %w", ErrRemote, err)
	}
	if !env.Success {
		return env, fmt.Errorf("%w: %s", ErrRemote, env.errorText())
	}
	return env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
