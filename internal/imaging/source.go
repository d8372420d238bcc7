package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyImage is returned when an upload source carries no bytes.
	ErrEmptyImage = errors.New("image is empty")

	// ErrInvalidBase64 is returned when inline data cannot be decoded.
	ErrInvalidBase64 = errors.New("invalid base64 image data")

	// ErrTooLarge is returned when the decoded image exceeds the size limit.
	ErrTooLarge = errors.New("image too large")

	// ErrExtensionNotAllowed is returned when a named upload carries a file
	// extension outside the allowed list.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
)

// UploadSource is one of Bytes, Base64 or NamedStream.
type UploadSource interface {
	uploadSource()
}

// Bytes is an already-decoded image buffer.
type Bytes []byte

// Base64 is inline image data, either bare base64 or a data URL
// ("data:image/png;base64,....").
type Base64 string

// NamedStream is a file handle with the client-supplied name, as received from
// a multipart form.
type NamedStream struct {
	Name   string
	Reader io.Reader
}

func (Bytes) uploadSource()       {}
func (Base64) uploadSource()      {}
func (NamedStream) uploadSource() {}

// Limits bounds what Normalize accepts. A zero MaxSize disables the size check
// and an empty AllowedExtensions accepts every name.
type Limits struct {
	MaxSize           int64
	AllowedExtensions []string
}

// Normalize resolves any UploadSource to raw bytes.
func Normalize(src UploadSource, limits Limits) ([]byte, error) {
	var data []byte

	switch s := src.(type) {
	case Bytes:
		data = s
	case Base64:
		decoded, err := decodeBase64(string(s))
		if err != nil {
			return nil, err
		}
		data = decoded
	case NamedStream:
		if !limits.allows(s.Name) {
			return nil, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, s.Name)
		}
		if s.Reader == nil {
			return nil, ErrEmptyImage
		}
		r := s.Reader
		if limits.MaxSize > 0 {
			r = io.LimitReader(r, limits.MaxSize+1)
		}
		read, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload %q: %w", s.Name, err)
		}
		data = read
	default:
		return nil, fmt.Errorf("unsupported upload source %T", src)
	}

	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if limits.MaxSize > 0 && int64(len(data)) > limits.MaxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limits.MaxSize)
	}
	return data, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, ErrInvalidBase64
		}
		s = payload
	}
	if s == "" {
		return nil, ErrEmptyImage
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}
	return decoded, nil
}

func (l Limits) allows(name string) bool {
	if len(l.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range l.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}
