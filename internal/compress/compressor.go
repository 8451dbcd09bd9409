package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/mtzip/internal/ziptype"
)

// Compressor deflates entry content. It keeps one pool of encoders per
// level and is safe for concurrent use.
type Compressor struct {
	pools [ziptype.MaxLevel + 1]sync.Pool
}

// NewCompressor returns a Compressor with empty encoder pools.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// Compress builds the payload for data, whose CRC-32 is crc.
//
// Empty input and MethodStore produce a Stored payload that shares data.
// MethodAuto falls back to Stored when deflate does not shrink the input.
func (c *Compressor) Compress(data []byte, crc uint32, level int, policy ziptype.MethodPolicy) (ziptype.Payload, error) {
	p := ziptype.Payload{
		CRC32:            crc,
		UncompressedSize: uint64(len(data)),
	}
	if len(data) == 0 || policy == ziptype.MethodStore {
		p.Method = ziptype.Stored
		p.Data = data
		return p, nil
	}
	if !ziptype.ValidLevel(level) {
		return ziptype.Payload{}, fmt.Errorf("%w: %d", ziptype.ErrInvalidLevel, level)
	}

	deflated, err := c.deflate(data, level)
	if err != nil {
		return ziptype.Payload{}, err
	}
	if policy == ziptype.MethodAuto && len(deflated) >= len(data) {
		p.Method = ziptype.Stored
		p.Data = data
		return p, nil
	}
	p.Method = ziptype.Deflated
	p.Data = deflated
	return p, nil
}

func (c *Compressor) deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	fw, err := c.get(level, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	fw.Reset(io.Discard)
	c.pools[level].Put(fw)
	return buf.Bytes(), nil
}

func (c *Compressor) get(level int, buf *bytes.Buffer) (*flate.Writer, error) {
	if fw, ok := c.pools[level].Get().(*flate.Writer); ok {
		fw.Reset(buf)
		return fw, nil
	}
	fw, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, fmt.Errorf("create deflate encoder: %w", err)
	}
	return fw, nil
}
