package imaging

import (
	"image"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height)), nil))
}

func decodeWidth(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img.Bounds().Dx()
}

func TestNormalizeJPEGKeepsNarrowImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.jpg")
	writeJPEG(t, path, 100, 50)

	out, err := NormalizeJPEG(path, 1200, 80)
	require.NoError(t, err)
	assert.Equal(t, path, out)
	assert.Equal(t, 100, decodeWidth(t, out))
}

func TestNormalizeJPEGDownscalesWideImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.jpg")
	writeJPEG(t, path, 400, 100)

	out, err := NormalizeJPEG(path, 200, 80)
	require.NoError(t, err)
	assert.Equal(t, 200, decodeWidth(t, out))
}

func TestNormalizeJPEGConvertsPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())

	out, err := NormalizeJPEG(path, 1200, 80)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ".jpg"))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original png should be removed")
}

func TestNormalizeJPEGKeepsValidGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anim.gif")
	f, err := os.Create(path)
	require.NoError(t, err)
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), palette.Plan9)
	require.NoError(t, gif.Encode(f, img, nil))
	require.NoError(t, f.Close())

	out, err := NormalizeJPEG(path, 1200, 80)
	require.NoError(t, err)
	assert.Equal(t, path, out)
}

func TestNormalizeJPEGRejectsFakeGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a"), 0o644))

	_, err := NormalizeJPEG(path, 1200, 80)
	assert.Error(t, err)
}

func TestNormalizeJPEGRejectsCorruptInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NormalizeJPEG(path, 1200, 80)
	assert.Error(t, err)
}
