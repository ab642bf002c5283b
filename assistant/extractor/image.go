package extractor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// MaxImageBytes bounds an uploaded land record photo.
const MaxImageBytes = 10 << 20

var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// DetectImage sniffs the upload header and returns its MIME type. Only the
// formats a phone camera or scanner produces are accepted.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image is empty", contractx.ErrValidation)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: image is larger than %d bytes", contractx.ErrValidation, MaxImageBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: unsupported image: %v", contractx.ErrValidation, err)
	}
	mime, ok := formatMIME[format]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image format %q", contractx.ErrValidation, format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("%w: image has no pixels", contractx.ErrValidation)
	}
	return mime, nil
}
