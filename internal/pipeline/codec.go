package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector packs a float32 embedding into a little-endian byte slice
// for storage in the chunk_cache.embedding BLOB column.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is encodeVector's inverse. It returns an error if b isn't a
// whole number of float32s — a sign the cache row predates a format change
// or was corrupted.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("pipeline: cached embedding length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
