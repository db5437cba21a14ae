package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// DecodeBMP decodes a raw bitmap frame as produced by the inference worker.
func DecodeBMP(data []byte) (image.Image, error) {
	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bitmap: %w", err)
	}

	return img, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var output bytes.Buffer
	if err := png.Encode(&output, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return output.Bytes(), nil
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var output bytes.Buffer
	if err := jpeg.Encode(&output, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return output.Bytes(), nil
}

// BMPToPNG converts a worker bitmap frame into PNG bytes.
func BMPToPNG(data []byte) ([]byte, error) {
	img, err := DecodeBMP(data)
	if err != nil {
		return nil, err
	}

	return EncodePNG(img)
}

// DataURL wraps encoded image bytes in a base64 data URL.
func DataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
