// Package image exposes the storage gateway over HTTP.
package image

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/radif/imagegw/internal/imaging"
	"github.com/radif/imagegw/internal/response"
	"github.com/radif/imagegw/internal/storage"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// Gateway is the subset of storage.Gateway the handlers use.
type Gateway interface {
	Upload(ctx context.Context, data []byte, ns storage.Namespace) (storage.StoredImage, error)
	Resolve(ctx context.Context, id string, ns storage.Namespace, def string) string
	Delete(ctx context.Context, id string, ns storage.Namespace) bool
}

// DefaultURLFunc returns the fallback URL for a namespace.
type DefaultURLFunc func(ns storage.Namespace) string

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	gw         Gateway
	limits     imaging.Limits
	defaultURL DefaultURLFunc
	logger     *slog.Logger
}

// NewHandler creates a new image Handler.
func NewHandler(gw Gateway, limits imaging.Limits, defaultURL DefaultURLFunc, logger *slog.Logger) *Handler {
	if defaultURL == nil {
		defaultURL = func(storage.Namespace) string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{gw: gw, limits: limits, defaultURL: defaultURL, logger: logger}
}

// Routes returns the /images router. guard wraps the mutating routes.
func (h *Handler) Routes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{namespace}/{id}", h.Resolve)
	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard)
		}
		r.Post("/{namespace}", h.Upload)
		r.Delete("/{namespace}/{id}", h.Delete)
	})
	return r
}

// UploadRequest is the JSON body accepted by Upload.
type UploadRequest struct {
	// Data is standard base64 or a data: URL.
	Data string `json:"data" example:"data:image/png;base64,iVBORw0KGgo="`
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	ID  string `json:"id" example:"7f3c1c8e-3a55-4c35-9d0e-0f0e5a7d2b11"`
	URL string `json:"url" example:"/static/images/products/7f3c1c8e-3a55-4c35-9d0e-0f0e5a7d2b11.jpg"`
}

// ResolveResult is returned by Resolve.
type ResolveResult struct {
	URL string `json:"url" example:"https://imagedelivery.net/hash/abc/public"`
}

// DeleteResult is returned by Delete.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// Upload godoc
//
//	@Summary		Upload image
//	@Description	Stores an image sent as multipart field "image" or as JSON {"data": base64}. The remote store is tried first; local disk is the fallback.
//	@Tags			images
//	@Accept			multipart/form-data,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			namespace	path		string			true	"Namespace"	Enums(products, users, uploads, categories, placeholders)
//	@Param			image		formData	file			false	"Image file"
//	@Param			body		body		UploadRequest	false	"Base64 image"
//	@Success		201			{object}	response.Envelope{data=UploadResult}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		413			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/images/{namespace} [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ns, ok := h.namespace(w, r)
	if !ok {
		return
	}

	if h.limits.MaxSize > 0 {
		// base64 and multipart framing both inflate the body past the image size
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxSize*2+multipartMemory)
	}

	src, cleanup, err := h.source(r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		h.writeSourceError(w, err)
		return
	}

	data, err := imaging.Normalize(src, h.limits)
	if err != nil {
		h.writeSourceError(w, err)
		return
	}

	img, err := h.gw.Upload(r.Context(), data, ns)
	if err != nil {
		h.logger.Error("upload failed", "namespace", ns, "error", err)
		response.InternalError(w, "upload failed")
		return
	}

	response.Created(w, UploadResult{ID: img.ID, URL: img.URL})
}

// Resolve godoc
//
//	@Summary		Resolve image URL
//	@Description	Returns the servable URL for an image id, or the namespace default when it cannot be found.
//	@Tags			images
//	@Produce		json
//	@Param			namespace	path		string	true	"Namespace"	Enums(products, users, uploads, categories, placeholders)
//	@Param			id			path		string	true	"Image id"
//	@Param			default		query		string	false	"Fallback path on this host"
//	@Param			redirect	query		bool	false	"Redirect to the URL instead of returning it"
//	@Success		200			{object}	response.Envelope{data=ResolveResult}
//	@Success		302
//	@Failure		400	{object}	response.Envelope
//	@Router			/images/{namespace}/{id} [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ns, ok := h.namespace(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	def := h.defaultURL(ns)
	if q.Has("default") {
		def = q.Get("default")
		if def != "" && !isLocalPath(def) {
			response.BadRequest(w, "default must be a local path")
			return
		}
	}

	u := h.gw.Resolve(r.Context(), chi.URLParam(r, "id"), ns, def)

	if wantsRedirect(q.Get("redirect")) {
		if u == "" {
			response.NotFound(w, "image not found")
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	response.OK(w, ResolveResult{URL: u})
}

// Delete godoc
//
//	@Summary		Delete image
//	@Description	Removes the image from every backend holding it. Deleting a missing image is not an error.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			namespace	path		string	true	"Namespace"	Enums(products, users, uploads, categories, placeholders)
//	@Param			id			path		string	true	"Image id"
//	@Success		200			{object}	response.Envelope{data=DeleteResult}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Router			/images/{namespace}/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ns, ok := h.namespace(w, r)
	if !ok {
		return
	}
	deleted := h.gw.Delete(r.Context(), chi.URLParam(r, "id"), ns)
	response.OK(w, DeleteResult{Deleted: deleted})
}

func (h *Handler) namespace(w http.ResponseWriter, r *http.Request) (storage.Namespace, bool) {
	ns, err := storage.ParseNamespace(chi.URLParam(r, "namespace"))
	if err != nil {
		response.BadRequest(w, "invalid namespace")
		return "", false
	}
	return ns, true
}

// source builds the upload source from a multipart or JSON request. The
// returned cleanup, when non-nil, releases multipart temp files.
func (h *Handler) source(r *http.Request) (imaging.UploadSource, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }

		file, header, err := r.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, cleanup, imaging.ErrEmptyImage
			}
			return nil, cleanup, err
		}
		return imaging.NamedStream{Name: header.Filename, Reader: file}, func() {
			_ = file.Close()
			cleanup()
		}, nil
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, err
	}
	return imaging.Base64(req.Data), nil, nil
}

func (h *Handler) writeSourceError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, imaging.ErrTooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		response.TooLarge(w, "image too large")
	case errors.Is(err, imaging.ErrExtensionNotAllowed):
		response.BadRequest(w, "file extension not allowed")
	case errors.Is(err, imaging.ErrInvalidBase64):
		response.BadRequest(w, "invalid base64 image data")
	case errors.Is(err, imaging.ErrEmptyImage):
		response.BadRequest(w, "image is empty")
	default:
		h.logger.Debug("malformed upload request", "error", err)
		response.BadRequest(w, "malformed upload request")
	}
}

// isLocalPath accepts rooted paths on this host. Scheme-relative ("//host")
// and backslash forms are rejected since browsers treat them as other hosts.
func isLocalPath(s string) bool {
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") && !strings.ContainsAny(s, "\\\r\n")
}

func wantsRedirect(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
