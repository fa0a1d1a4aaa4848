package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ProducesPNGOfRequestedSize(t *testing.T) {
	for _, size := range Sizes {
		data, err := Generate("https://example.com", "", size)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, size, img.Bounds().Dx())
		assert.Equal(t, size, img.Bounds().Dy())
	}
}

func TestGenerate_CustomColor(t *testing.T) {
	data, err := Generate("hello", "#1a2b3c", DefaultSize)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// The configured foreground must appear somewhere in the image.
	found := false
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !found; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if uint8(r>>8) == 0x1a && uint8(g>>8) == 0x2b && uint8(b>>8) == 0x3c {
				found = true
				break
			}
		}
	}
	assert.True(t, found)
}

func TestGenerate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		color   string
		size    int
		wantErr error
	}{
		{"empty content", "", "", DefaultSize, ErrEmptyContent},
		{"bad size", "hi", "", 300, ErrInvalidSize},
		{"missing hash", "hi", "ff0000", DefaultSize, ErrInvalidColor},
		{"short hex", "hi", "#f00", DefaultSize, ErrInvalidColor},
		{"non-hex", "hi", "#zzzzzz", DefaultSize, ErrInvalidColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.content, tt.color, tt.size)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
