package infra

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the side of generated QR images, in pixels.
const DefaultQRSize = 256

// QRPNG renders content as a PNG QR code. Medium error correction keeps
// payloads of ~150 characters scannable from a phone screen.
func QRPNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
