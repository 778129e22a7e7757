package rtms

import (
	"encoding/binary"
	"fmt"

	"github.com/zaf/g711"
)

// DecodePCM converts an audio payload into 16-bit little-endian linear PCM.
// L16 payloads are returned as a copy; G.711 μ-law is expanded.
func DecodePCM(codec AudioCodec, data []byte) ([]byte, error) {
	switch codec {
	case AudioCodecL16:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("L16 payload has odd length %d", len(data))
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case AudioCodecG711:
		return g711.DecodeUlaw(data), nil
	default:
		return nil, fmt.Errorf("%w: cannot decode %s to PCM", ErrUnsupportedCodec, codec)
	}
}

// Samples interprets little-endian 16-bit PCM as samples. A trailing odd
// byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// swap16 converts 16-bit samples between little- and big-endian in place.
func swap16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}
