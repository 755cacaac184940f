package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Frame flags, stored in the first plaintext byte.
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// Payloads below this size are never worth compressing. Above it they are
// usually inline media.
const compressThreshold = 1024

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// frame prefixes data with its flag byte, compressing it when that pays off.
func frame(data []byte) []byte {
	if len(data) >= compressThreshold {
		compressed := zstdEncoder.EncodeAll(data, make([]byte, 1, len(data)/2+1))
		if len(compressed) < len(data)+1 {
			compressed[0] = frameZstd
			return compressed
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, frameRaw)
	return append(out, data...)
}

func unframe(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	switch framed[0] {
	case frameRaw:
		return framed[1:], nil
	case frameZstd:
		out, err := zstdDecoder.DecodeAll(framed[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown frame flag %d", framed[0])
	}
}
