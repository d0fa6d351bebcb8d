package receipt

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func TestCheckImage(t *testing.T) {
	assert.NoError(t, CheckImage("image/jpeg", 1024))
	assert.NoError(t, CheckImage("IMAGE/PNG", MaxImageSize))
	assert.ErrorIs(t, CheckImage("image/png", MaxImageSize+1), ErrImageTooLarge)
	assert.ErrorIs(t, CheckImage("image/gif", 1024), ErrUnsupportedImage)
	assert.ErrorIs(t, CheckImage("application/pdf", 1024), ErrUnsupportedImage)
	assert.ErrorIs(t, CheckImage("image/png", 0), ErrEmptyImage)
}

func TestEncodeDecodeImage(t *testing.T) {
	url, err := EncodeImage("image/png", pngHeader)
	require.NoError(t, err)
	assert.Contains(t, url, "data:image/png;base64,")

	contentType, data, err := DecodeImage(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngHeader, data)
}

var jpegHeader = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")

func TestDecodeImage_JPGAlias(t *testing.T) {
	assert.NoError(t, CheckImage("image/jpg", 1024))

	payload := base64.StdEncoding.EncodeToString(jpegHeader)
	contentType, data, err := DecodeImage("data:image/jpg;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, jpegHeader, data)

	url, err := EncodeImage("image/JPG", jpegHeader)
	require.NoError(t, err)
	assert.Contains(t, url, "data:image/jpeg;base64,")
}

func TestDecodeImage_Rejects(t *testing.T) {
	_, _, err := DecodeImage("")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = DecodeImage("https://example.com/receipt.png")
	assert.ErrorIs(t, err, ErrMalformedImage)

	_, _, err = DecodeImage("data:image/png;base64,***")
	assert.ErrorIs(t, err, ErrMalformedImage)

	gif := base64.StdEncoding.EncodeToString([]byte("GIF89a......"))
	_, _, err = DecodeImage("data:image/gif;base64," + gif)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	// declared PNG, actually text
	text := base64.StdEncoding.EncodeToString([]byte("hello receipt"))
	_, _, err = DecodeImage("data:image/png;base64," + text)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...)
	_, _, err = DecodeImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
