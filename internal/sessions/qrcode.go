package sessions

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of invitation QR codes.
const QRSize = 256

// InvitationQR renders link as a PNG QR code.
func InvitationQR(link string, size int) ([]byte, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}
