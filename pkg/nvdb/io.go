package nvdb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash"
)

// SegmentMagic identifies one grid segment in a compact-format stream.
const SegmentMagic = 0x004244564f4e414e // "NANOVDB\0" little-endian

// segmentHeader is the fixed-size prefix of every grid segment. The name and
// class strings and the (possibly compressed) voxel payload follow it, so a
// stream is a plain concatenation of self-delimiting segments and supports
// repeated append writes.
type segmentHeader struct {
	Magic   uint64
	Version uint64

	Codec    uint8
	Stats    uint8
	Checksum uint8
	_        [5]byte

	VoxelSize  float64
	VoxelCount uint64

	MinX, MinY, MinZ int32
	MaxX, MaxY, MaxZ int32

	Min, Max     float64
	Mean, StdDev float64

	Digest uint64

	RawLen  uint64
	DataLen uint64

	NameLen  uint32
	ClassLen uint32
}

// WriteGrid appends one grid segment to w, compressing the voxel payload with
// the given codec. Multiple grids may be written to the same stream.
func WriteGrid(w io.Writer, g *Grid, codec Codec) error {
	raw := encodePayload(g)
	data, err := compress(codec, raw)
	if err != nil {
		return err
	}

	hdr := segmentHeader{
		Magic:      SegmentMagic,
		Version:    versionWord(),
		Codec:      uint8(codec),
		Stats:      uint8(g.StatsMode),
		Checksum:   uint8(g.ChecksumMode),
		VoxelSize:  g.VoxelSize,
		VoxelCount: uint64(g.VoxelCount()),
		MinX:       g.BBox.Min.X,
		MinY:       g.BBox.Min.Y,
		MinZ:       g.BBox.Min.Z,
		MaxX:       g.BBox.Max.X,
		MaxY:       g.BBox.Max.Y,
		MaxZ:       g.BBox.Max.Z,
		Min:        g.Min,
		Max:        g.Max,
		Mean:       g.Mean,
		StdDev:     g.StdDev,
		Digest:     g.Checksum,
		RawLen:     uint64(len(raw)),
		DataLen:    uint64(len(data)),
		NameLen:    uint32(len(g.Name)),
		ClassLen:   uint32(len(g.Class)),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if _, err := io.WriteString(w, g.Name); err != nil {
		return err
	}
	if _, err := io.WriteString(w, g.Class); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadGrids decodes every grid segment from r until end of stream.
func ReadGrids(r io.Reader) ([]*Grid, error) {
	br := bufio.NewReader(r)
	var grids []*Grid
	for {
		g, err := readSegment(br, "")
		if errors.Is(err, io.EOF) {
			return grids, nil
		}
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
}

// ReadGridsFromFile decodes every grid stored in the file at path.
func ReadGridsFromFile(path string) ([]*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	grids, err := ReadGrids(f)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return grids, nil
}

// ReadNamedGridFromFile scans the file at path for the single grid with the
// given name, skipping the payloads of non-matching segments. It returns
// (nil, nil) when no grid carries the name and ErrAmbiguousGrid when more
// than one does.
func ReadNamedGridFromFile(path, name string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var found *Grid
	for {
		g, err := readSegment(br, name)
		if errors.Is(err, io.EOF) {
			return found, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if g == nil {
			continue // segment skipped by the name filter
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q in %q", ErrAmbiguousGrid, name, path)
		}
		found = g
	}
}

// readSegment decodes the next segment from r. With a non-empty wantName, a
// segment whose grid name differs is skipped without decoding its payload and
// (nil, nil) is returned. io.EOF cleanly before a header means end of stream.
func readSegment(r *bufio.Reader, wantName string) (*Grid, error) {
	var hdr segmentHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	if hdr.Magic != SegmentMagic {
		return nil, fmt.Errorf("%w: bad segment magic", ErrInvalidStream)
	}
	if hdr.Version>>32 != MajorVersion {
		return nil, fmt.Errorf("%w: stream version %d.x, library version %s",
			ErrVersionMismatch, hdr.Version>>32, Version())
	}
	if hdr.NameLen > maxStringLen || hdr.ClassLen > maxStringLen {
		return nil, fmt.Errorf("%w: string length out of range", ErrInvalidStream)
	}
	if hdr.RawLen > maxSegmentLen || hdr.DataLen > maxSegmentLen {
		return nil, fmt.Errorf("%w: payload length out of range", ErrInvalidStream)
	}
	if hdr.VoxelCount > maxSegmentLen/voxelEncodedSize {
		return nil, fmt.Errorf("%w: voxel count out of range", ErrInvalidStream)
	}

	name := make([]byte, hdr.NameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	class := make([]byte, hdr.ClassLen)
	if _, err := io.ReadFull(r, class); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}

	if wantName != "" && string(name) != wantName {
		if _, err := io.CopyN(io.Discard, r, int64(hdr.DataLen)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
		}
		return nil, nil
	}

	data := make([]byte, hdr.DataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	raw, err := decompress(Codec(hdr.Codec), data, int(hdr.RawLen))
	if err != nil {
		return nil, err
	}
	coords, values, err := decodePayload(raw, int(hdr.VoxelCount))
	if err != nil {
		return nil, err
	}

	g := &Grid{
		Name:      string(name),
		Class:     string(class),
		VoxelSize: hdr.VoxelSize,
		Coords:    coords,
		Values:    values,
		BBox: BBox{
			Min: Coord{X: hdr.MinX, Y: hdr.MinY, Z: hdr.MinZ},
			Max: Coord{X: hdr.MaxX, Y: hdr.MaxY, Z: hdr.MaxZ},
		},
		Min:          hdr.Min,
		Max:          hdr.Max,
		Mean:         hdr.Mean,
		StdDev:       hdr.StdDev,
		StatsMode:    StatsMode(hdr.Stats),
		ChecksumMode: ChecksumMode(hdr.Checksum),
		Checksum:     hdr.Digest,
	}
	if g.ChecksumMode != ChecksumDisable {
		if got := computeChecksum(g, g.ChecksumMode); got != g.Checksum {
			return nil, fmt.Errorf("%w: grid %q", ErrChecksumMismatch, g.Name)
		}
	}
	return g, nil
}

// Sanity bounds applied to header-supplied sizes before any allocation, so a
// corrupt or crafted stream fails with ErrInvalidStream instead of exhausting
// memory.
const (
	maxStringLen     = 1 << 20
	maxSegmentLen    = 1 << 31
	voxelEncodedSize = 12 + 8 // one Coord plus one float64 in the payload slabs
)

// encodePayload serializes the coordinate and value slabs: all coordinates
// first, then all values, little-endian. Keeping the slabs apart is what
// makes the byte shuffle in the blosc codec effective.
func encodePayload(g *Grid) []byte {
	var buf bytes.Buffer
	buf.Grow(len(g.Coords)*12 + len(g.Values)*8)
	_ = binary.Write(&buf, binary.LittleEndian, g.Coords)
	_ = binary.Write(&buf, binary.LittleEndian, g.Values)
	return buf.Bytes()
}

func decodePayload(raw []byte, n int) ([]Coord, []float64, error) {
	if len(raw) != n*12+n*8 {
		return nil, nil, fmt.Errorf("%w: payload size %d for %d voxels", ErrInvalidStream, len(raw), n)
	}
	r := bytes.NewReader(raw)
	coords := make([]Coord, n)
	values := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, coords); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	return coords, values, nil
}

// computeChecksum derives the grid's integrity digest. Partial covers the
// grid's identity and extent; Full additionally covers the uncompressed voxel
// payload. Disable always yields zero.
func computeChecksum(g *Grid, m ChecksumMode) uint64 {
	if m == ChecksumDisable {
		return 0
	}
	h := xxhash.New()
	_, _ = h.Write([]byte(g.Name))
	_ = binary.Write(h, binary.LittleEndian, uint64(g.VoxelCount()))
	_ = binary.Write(h, binary.LittleEndian, g.BBox)
	if m == ChecksumFull {
		_, _ = h.Write(encodePayload(g))
	}
	return h.Sum64()
}
