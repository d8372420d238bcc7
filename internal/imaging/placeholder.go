package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlaceholderSize is the edge length, in pixels, of rendered placeholders.
const PlaceholderSize = 200

var (
	placeholderBackground = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	placeholderBorder     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	placeholderText       = color.RGBA{R: 100, G: 100, B: 100, A: 255}
)

// RenderPlaceholder draws a square placeholder with a one pixel border and the
// label centred on it, encoded in the format implied by ext.
func RenderPlaceholder(label, ext string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderBackground}, image.Point{}, draw.Src)

	last := PlaceholderSize - 1
	for i := 0; i < PlaceholderSize; i++ {
		img.Set(i, 0, placeholderBorder)
		img.Set(i, last, placeholderBorder)
		img.Set(0, i, placeholderBorder)
		img.Set(last, i, placeholderBorder)
	}

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(placeholderText),
		Face: face,
	}
	width := d.MeasureString(label).Ceil()
	x := (PlaceholderSize - width) / 2
	if x < 2 {
		x = 2
	}
	y := (PlaceholderSize + face.Metrics().Ascent.Ceil()) / 2
	d.Dot = fixed.P(x, y)
	d.DrawString(label)

	var buf bytes.Buffer
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("no placeholder encoder for %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
