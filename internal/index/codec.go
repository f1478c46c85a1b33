package index

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes a float32 vector as a little-endian blob, the
// layout sqlite-vec and the pure-Go scan path both understand.
func EncodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// DecodeVector deserializes a little-endian float32 blob.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("index: blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// innerProduct computes the dot product of two equal-length vectors.
// Vectors are normalized at build time, so this equals cosine similarity.
func innerProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
