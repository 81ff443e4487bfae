package whitelist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	lz4FrameMagic      = 0x184D2204
	lz4LegacyMagic     = 0x184C2102
	lz4SkippableMinLE  = 0x184D2A50
	lz4SkippableMaxLE  = 0x184D2A5F
)

// isLZ4 reports whether data begins with one of the LZ4 frame magic
// numbers, read as a little-endian uint32 (spec §4.9 step 7).
func isLZ4(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := binary.LittleEndian.Uint32(data[:4])
	if magic == lz4FrameMagic || magic == lz4LegacyMagic {
		return true
	}
	return magic >= lz4SkippableMinLE && magic <= lz4SkippableMaxLE
}

// decompress dispatches to the LZ4 frame reader or the legacy LZSS decoder
// depending on the leading magic bytes, then checks the result against
// uncompressedSize.
func decompress(data []byte, uncompressedSize uint32) ([]byte, error) {
	var out []byte
	var err error

	if isLZ4(data) {
		r := lz4.NewReader(bytes.NewReader(data))
		out, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("whitelist: lz4 decompress: %w", err)
		}
	} else {
		out, err = decodeLegacy(data)
		if err != nil {
			return nil, err
		}
	}

	if uint32(len(out)) != uncompressedSize {
		return nil, fmt.Errorf("whitelist: decompressed length %d != header uncompressed_size %d", len(out), uncompressedSize)
	}
	return out, nil
}
