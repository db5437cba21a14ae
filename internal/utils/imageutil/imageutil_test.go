package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodeTestBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func TestBMPToPNG(t *testing.T) {
	pngBytes, err := BMPToPNG(encodeTestBMP(t, 4, 2))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
	assert.Equal(t, 2, decoded.Bounds().Dy())
}

func TestDecodeBMPRejectsGarbage(t *testing.T) {
	_, err := DecodeBMP([]byte("not a bitmap"))
	require.Error(t, err)
}

func TestDataURL(t *testing.T) {
	url := DataURL([]byte{0x01, 0x02}, "image/png")
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Equal(t, "data:image/png;base64,AQI=", url)
}
