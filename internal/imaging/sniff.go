// Package imaging inspects and produces raw image bytes: format detection from
// magic numbers, normalization of upload inputs, and placeholder rendering.
package imaging

import "bytes"

// DefaultExtension is used when no known signature matches.
const DefaultExtension = ".jpg"

// sniffLen is the prefix length inspected by DetectExtension.
const sniffLen = 12

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	gif87a    = []byte("GIF87a")
	gif89a    = []byte("GIF89a")
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// DetectExtension returns the file extension (with leading dot) implied by the
// magic bytes at the start of data. Client-declared names and MIME types are
// never consulted. Unrecognised or short input yields DefaultExtension.
func DetectExtension(data []byte) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	switch {
	case bytes.HasPrefix(head, jpegMagic):
		return ".jpg"
	case bytes.HasPrefix(head, pngMagic):
		return ".png"
	case bytes.HasPrefix(head, gif87a), bytes.HasPrefix(head, gif89a):
		return ".gif"
	case len(head) >= 12 && bytes.HasPrefix(head, riffMagic) && bytes.Equal(head[8:12], webpMagic):
		return ".webp"
	default:
		return DefaultExtension
	}
}

// ContentType maps an extension produced by DetectExtension to its MIME type.
func ContentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
