// internal/safe/compression.go
package safe

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// codec compresses snapshot payloads above a size floor. Encoder and decoder
// are safe for concurrent EncodeAll/DecodeAll use.
type codec struct {
	minSize int
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

func newCodec(minSize int) (*codec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &codec{minSize: minSize, enc: enc, dec: dec}, nil
}

// compress returns the stored form of content and whether it was compressed.
// Payloads below the floor, or that fail to shrink, are stored as-is.
func (c *codec) compress(content []byte) ([]byte, bool) {
	if len(content) < c.minSize {
		return content, false
	}

	compressed := c.enc.EncodeAll(content, nil)
	if len(compressed) >= len(content) {
		return content, false
	}
	return compressed, true
}

func (c *codec) decompress(data []byte) ([]byte, error) {
	return c.dec.DecodeAll(data, nil)
}
