package whitelist

import (
	"encoding/binary"
	"fmt"
)

// decodeLegacy implements the legacy LZSS-like scheme: each token is one
// byte whose high nibble is a literal run length and low nibble is a
// match-length base; either nibble reading 15 extends via a run of
// 0xFF-terminated addend bytes. Back-references copy byte-by-byte from the
// already-decoded output so overlapping copies (distance 1) replicate a
// repeating run, matching the original decompressor byte for byte.
//
// A pathological back-reference pointing before the start of the output is
// never followed out of bounds; the decoder stops and returns an error
// instead of panicking on a bad slice index.
func decodeLegacy(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	n := len(data)
	index := 0

	for index < n {
		b := data[index]
		index++
		literalLen := int(b >> 4)
		matchNibble := int(b & 0xf)

		if literalLen == 15 {
			for {
				if index >= n {
					return nil, fmt.Errorf("whitelist: legacy decoder: truncated literal-length extension")
				}
				add := data[index]
				index++
				literalLen += int(add)
				if add != 0xff {
					break
				}
			}
		}

		if literalLen > 0 {
			end := index + literalLen
			if end > n {
				end = n
			}
			out = append(out, data[index:end]...)
			index = end
		}

		if index >= n {
			break
		}

		if index+2 > n {
			return nil, fmt.Errorf("whitelist: legacy decoder: truncated back-reference distance")
		}
		distance := int(binary.LittleEndian.Uint16(data[index : index+2]))
		index += 2
		matchLen := 4 + matchNibble

		if matchNibble == 15 {
			for {
				if index >= n {
					return nil, fmt.Errorf("whitelist: legacy decoder: truncated match-length extension")
				}
				add := data[index]
				index++
				matchLen += int(add)
				if add != 0xff {
					break
				}
			}
		}

		for matchLen > 0 {
			srcIdx := len(out) - distance
			if srcIdx < 0 || srcIdx >= len(out) {
				return nil, fmt.Errorf("whitelist: legacy decoder: back-reference distance %d out of bounds at output length %d", distance, len(out))
			}
			out = append(out, out[srcIdx])
			matchLen--
		}
	}

	return out, nil
}
