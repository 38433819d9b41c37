package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
)

// PNGDataURLPrefix prefixes every PNG data URL accepted by DecodeDataURL.
const PNGDataURLPrefix = "data:image/png;base64,"

// ErrInvalidDataURL is returned for payloads that are not base64 PNG data URLs.
var ErrInvalidDataURL = errors.New("invalid data URL")

// ParseCompression maps a compression name (default, speed, best, none) to a
// PNG compression level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none", "no":
		return png.NoCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("invalid png compression %q: must be default, speed, best or none", name)
	}
}

// EncodePNG writes img as PNG with the given compression level.
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNGBytes encodes img into a new byte slice.
func PNGBytes(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDataURL wraps PNG bytes as a data URL.
func EncodeDataURL(pngData []byte) string {
	return PNGDataURLPrefix + base64.StdEncoding.EncodeToString(pngData)
}

// DecodeDataURL extracts the PNG bytes of a "data:image/png;base64," URL. The
// payload must carry a readable PNG header.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, PNGDataURLPrefix) {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s[len(PNGDataURLPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, nil
}
