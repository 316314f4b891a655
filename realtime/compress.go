package realtime

import (
	"github.com/klauspost/compress/zstd"
)

var decoder, _ = zstd.NewReader(nil)

// zstd frame magic number, little-endian. The fan-out service only
// compresses payloads over 1KB; everything else arrives as plain JSON.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// isCompressed reports whether data is a zstd frame.
func isCompressed(data []byte) bool {
	if len(data) < len(zstdMagic) {
		return false
	}
	for i, b := range zstdMagic {
		if data[i] != b {
			return false
		}
	}
	return true
}

// Decompress inflates a zstd-compressed payload.
func Decompress(data []byte) ([]byte, error) {
	return decoder.DecodeAll(data, nil)
}
