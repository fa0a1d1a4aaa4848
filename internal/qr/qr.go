// Package qr renders QR codes as PNG images. It is stateless; nothing
// here touches the session store.
package qr

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent indicates there is nothing to encode.
	ErrEmptyContent = errors.New("content is empty")

	// ErrInvalidColor indicates the foreground color is not a #RRGGBB
	// hex string.
	ErrInvalidColor = errors.New("invalid color")

	// ErrInvalidSize indicates an unsupported output size.
	ErrInvalidSize = errors.New("invalid size")
)

// Sizes are the supported output resolutions in pixels.
var Sizes = []int{256, 512, 1024}

// DefaultSize is used when the caller does not pick a resolution.
const DefaultSize = 512

// Generate encodes content into a PNG QR code of size pixels with the
// given foreground color ("#RRGGBB"). An empty color means black.
func Generate(content, hexColor string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !validSize(size) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	fg := color.Color(color.Black)
	if hexColor != "" {
		parsed, err := parseHexColor(hexColor)
		if err != nil {
			return nil, err
		}
		fg = parsed
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	code.ForegroundColor = fg
	code.BackgroundColor = color.White

	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("rendering qr code: %w", err)
	}
	return png, nil
}

func validSize(size int) bool {
	for _, s := range Sizes {
		if size == s {
			return true
		}
	}
	return false
}

// parseHexColor parses "#RRGGBB" into an opaque color.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
