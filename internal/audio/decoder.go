package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOddPCMLength marks transport data whose byte count is not a whole
// number of 16-bit samples.
var ErrOddPCMLength = errors.New("pcm data has odd byte length")

// DecodePCM converts base64-encoded little-endian s16le mono samples into a
// Buffer. Decoding is pure and allocates a fresh buffer on every call, so
// concurrent decodes of the same data never share state.
func DecodePCM(b64 string) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode pcm base64: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("decode pcm: %w (%d bytes)", ErrOddPCMLength, len(raw))
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return &Buffer{Samples: samples}, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// EncodePCM converts samples to the base64 transport encoding. Used by the
// tests and kept next to DecodePCM so the two stay inverse operations.
func EncodePCM(samples []int16) string {
	return base64.StdEncoding.EncodeToString(SamplesToBytes(samples))
}
