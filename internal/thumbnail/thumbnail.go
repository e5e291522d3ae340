// Package thumbnail derives square cover-fit previews of uploaded images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Result is an encoded thumbnail.
type Result struct {
	Data        []byte
	Ext         string
	ContentType string
}

// Generator resizes images to a fixed square edge.
type Generator struct {
	size int
}

// NewGenerator returns a Generator producing size×size thumbnails.
func NewGenerator(size int) *Generator {
	return &Generator{size: size}
}

// Make decodes data, crops it to fill a size×size square anchored at the
// center and encodes the result. JPEG, PNG and GIF sources keep their format;
// anything else decodable (e.g. WebP) is encoded as JPEG.
func (g *Generator) Make(data []byte, filename string) (Result, error) {
	if len(data) == 0 {
		return Result{}, errors.New("empty image data")
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	dst := imaging.Fill(src, g.size, g.size, imaging.Center, imaging.Lanczos)

	ext := strings.ToLower(filepath.Ext(filename))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil || (format != imaging.JPEG && format != imaging.PNG && format != imaging.GIF) {
		format = imaging.JPEG
		ext = ".jpg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format, imaging.JPEGQuality(85)); err != nil {
		return Result{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return Result{
		Data:        buf.Bytes(),
		Ext:         ext,
		ContentType: contentTypes[format],
	}, nil
}

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
}
