package nvdb

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
)

// Codec selects the compression applied to grid payloads when they are
// written. The codec is a property of the write, not of the grid: readers
// recover it from the segment header.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZip        // DEFLATE-compressed payload
	CodecBlosc      // byte-shuffled, block-compressed payload
)

// String returns the CLI vocabulary name of the codec.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZip:
		return "zip"
	case CodecBlosc:
		return "blosc"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

// ParseCodec matches s case-insensitively against {none, zip, blosc}.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CodecNone, nil
	case "zip":
		return CodecZip, nil
	case "blosc":
		return CodecBlosc, nil
	}
	return CodecNone, fmt.Errorf("expected one of the codecs {none, zip, blosc}, got %q", s)
}

// shuffleStride groups payload bytes by position within each 4-byte lane
// before block compression, which clusters the high bytes of coordinates and
// values and compresses far better on smooth fields.
const shuffleStride = 4

func compress(c Codec, raw []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return raw, nil
	case CodecZip:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecBlosc:
		return s2.Encode(nil, shuffle(raw, shuffleStride)), nil
	}
	return nil, fmt.Errorf("unknown codec %d", uint8(c))
}

func decompress(c Codec, data []byte, rawLen int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(data) != rawLen {
			return nil, fmt.Errorf("%w: payload length %d, expected %d", ErrInvalidStream, len(data), rawLen)
		}
		return data, nil
	case CodecZip:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
		}
		defer zr.Close()
		raw := make([]byte, rawLen)
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
		}
		return raw, nil
	case CodecBlosc:
		shuffled, err := s2.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
		}
		if len(shuffled) != rawLen {
			return nil, fmt.Errorf("%w: payload length %d, expected %d", ErrInvalidStream, len(shuffled), rawLen)
		}
		return unshuffle(shuffled, shuffleStride), nil
	}
	return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalidStream, uint8(c))
}

// shuffle transposes b so that byte k of every stride-sized lane is stored
// contiguously. A trailing remainder shorter than one lane is copied as-is.
func shuffle(b []byte, stride int) []byte {
	out := make([]byte, len(b))
	lanes := len(b) / stride
	for k := 0; k < stride; k++ {
		for i := 0; i < lanes; i++ {
			out[k*lanes+i] = b[i*stride+k]
		}
	}
	copy(out[lanes*stride:], b[lanes*stride:])
	return out
}

func unshuffle(b []byte, stride int) []byte {
	out := make([]byte, len(b))
	lanes := len(b) / stride
	for k := 0; k < stride; k++ {
		for i := 0; i < lanes; i++ {
			out[i*stride+k] = b[k*lanes+i]
		}
	}
	copy(out[lanes*stride:], b[lanes*stride:])
	return out
}
