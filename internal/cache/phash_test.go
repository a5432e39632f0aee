package cache

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientImage renders a deterministic test picture. The shift parameter
// moves the pattern so different shifts produce visually different images.
func gradientImage(shift int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x*4 + shift) % 256),
				G: uint8((y*4 + shift*2) % 256),
				B: uint8((x*y + shift) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestHashImage_Deterministic(t *testing.T) {
	a, err := HashImage(gradientImage(0))
	require.NoError(t, err)
	b, err := HashImage(gradientImage(0))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 0, a.Distance(b))
}

func TestHashImage_DifferentImagesDiffer(t *testing.T) {
	a, err := HashImage(gradientImage(0))
	require.NoError(t, err)
	b, err := HashImage(gradientImage(97))
	require.NoError(t, err)

	assert.Greater(t, a.Distance(b), 0)
}

func TestHashReader_DecodesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradientImage(0)))

	fromReader, err := HashReader(&buf)
	require.NoError(t, err)

	direct, err := HashImage(gradientImage(0))
	require.NoError(t, err)
	assert.Equal(t, direct, fromReader)
}

func TestHashReader_RejectsGarbage(t *testing.T) {
	_, err := HashReader(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestHash_BytesRoundTrip(t *testing.T) {
	h := Hash(0xdeadbeefcafe1234)

	encoded := h.Bytes()
	require.Len(t, encoded, 8)

	decoded, err := ParseBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestParseBytes_RejectsWrongLength(t *testing.T) {
	_, err := ParseBytes([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = ParseBytes(nil)
	assert.Error(t, err)
}

func TestHash_Distance(t *testing.T) {
	a := Hash(0b1010)
	b := Hash(0b0110)
	assert.Equal(t, 2, a.Distance(b))
	assert.Equal(t, 2, b.Distance(a))
	assert.Equal(t, 0, a.Distance(a))
	assert.Equal(t, 64, Hash(0).Distance(^Hash(0)))
}
