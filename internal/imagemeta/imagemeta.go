// Package imagemeta decodes reference image dimensions for the analysis
// engines. Only the header is read; the core never touches pixel data.
package imagemeta

import (
	"fmt"
	"image"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Dimensions returns the pixel width and height of an encoded image.
func Dimensions(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// DimensionsFile returns the pixel dimensions of an image file.
func DimensionsFile(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return Dimensions(f)
}
