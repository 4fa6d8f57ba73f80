package export

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// ShareQR encodes url as a PNG QR code of size x size pixels.
// Sizes outside (0, 1024] fall back to 256.
func ShareQR(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, errors.New("share URL is empty")
	}
	if size <= 0 || size > maxQRSize {
		size = defaultQRSize
	}

	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}
	return png, nil
}
