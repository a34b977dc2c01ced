package resource

import "encoding/binary"

// Hash computes the version of a resource body.
//
// Every byte is written into an 8 byte little endian window; each time a byte lands
// on window position 0 the whole window is xor-ed into the result. It detects changes,
// it does not resist collisions.
func Hash(data []byte) uint64 {
	var hash uint64
	var window [8]byte
	for idx, b := range data {
		window[idx%8] = b
		if idx%8 == 0 {
			hash ^= binary.LittleEndian.Uint64(window[:])
		}
	}
	return hash
}
