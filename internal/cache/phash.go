package cache

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math/bits"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Hash is a 64-bit DCT perceptual hash of an image. Two hashes within a
// small Hamming distance of each other almost certainly describe the same
// picture, surviving recompression, rescaling, and minor crops.
type Hash uint64

// hashBytes is the encoded width of a Hash.
const hashBytes = 8

// HashImage computes the perceptual hash of a decoded image.
func HashImage(img image.Image) (Hash, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("perception hash: %w", err)
	}
	return Hash(h.GetHash()), nil
}

// HashReader decodes an image (JPEG, PNG, GIF, WebP, or BMP) and computes
// its perceptual hash.
func HashReader(r io.Reader) (Hash, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}
	return HashImage(img)
}

// Distance is the Hamming distance between two hashes.
func (h Hash) Distance(other Hash) int {
	return bits.OnesCount64(uint64(h ^ other))
}

// Bytes encodes the hash as 8 big-endian bytes for storage.
func (h Hash) Bytes() []byte {
	var buf [hashBytes]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	return buf[:]
}

// ParseBytes decodes a stored hash. Any payload that is not exactly 8 bytes
// is corrupt.
func ParseBytes(b []byte) (Hash, error) {
	if len(b) != hashBytes {
		return 0, fmt.Errorf("phash payload is %d bytes, want %d", len(b), hashBytes)
	}
	return Hash(binary.BigEndian.Uint64(b)), nil
}

func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}
