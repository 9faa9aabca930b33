package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// NormalizeJPEG re-encodes the image at path as a JPEG, downscaling to
// maxWidth when the source is wider. The stored file is replaced; the
// returned path carries a .jpg extension. GIFs are validated but kept
// as-is so animations survive; a payload that fails to decode is an error.
func NormalizeJPEG(path string, maxWidth, quality int) (string, error) {
	if maxWidth <= 0 {
		maxWidth = 1200
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	_, format, err := image.DecodeConfig(src)
	if err != nil {
		src.Close() //nolint:errcheck
		return "", fmt.Errorf("decode image: %w", err)
	}
	if format == "gif" {
		src.Close() //nolint:errcheck
		return path, nil
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		src.Close() //nolint:errcheck
		return "", fmt.Errorf("rewind image: %w", err)
	}
	img, _, err := image.Decode(src)
	src.Close() //nolint:errcheck
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	if width := img.Bounds().Dx(); width > maxWidth {
		img = scaleToWidth(img, maxWidth)
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	tmpPath := outPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()       //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("flush image: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("replace image: %w", err)
	}
	if outPath != path {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove original image: %w", err)
		}
	}
	return outPath, nil
}

func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
