package vdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// fileHeader sits at offset zero. TOCOffset points at the table of contents
// written after the last grid block; it is patched in once all blocks are on
// disk, which lets readers seek straight to the TOC and defer grid payloads.
type fileHeader struct {
	Magic     uint64
	Version   uint64
	Grids     uint64
	TOCOffset int64
}

// tocEntry locates one grid block inside the file.
type tocEntry struct {
	offset     int64
	length     int64
	voxelCount uint64
	name       string
}

// File provides access to the grids stored in one container file. The zero
// value is not usable; obtain one from (*Env).OpenFile and call Open before
// any accessor.
type File struct {
	path    string
	env     *Env
	f       *os.File
	hdr     fileHeader
	entries []tocEntry
	grids   []*Grid
	delayed bool
}

// OpenFile associates a path with the environment. No I/O happens until Open.
func (e *Env) OpenFile(path string) *File {
	return &File{path: path, env: e}
}

// Open reads the file header and table of contents. With delayed set, grid
// payloads stay on disk until first accessed; otherwise every grid is
// materialized immediately and the descriptor can serve no further reads.
func (f *File) Open(delayed bool) error {
	osf, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.f = osf
	f.delayed = delayed

	if err := binary.Read(f.f, binary.LittleEndian, &f.hdr); err != nil {
		f.Close()
		return fmt.Errorf("%w: %q: %v", ErrInvalidFile, f.path, err)
	}
	if f.hdr.Magic != Magic {
		f.Close()
		return fmt.Errorf("%w: %q: bad magic", ErrInvalidFile, f.path)
	}
	if f.hdr.Version != FormatVersion {
		f.Close()
		return fmt.Errorf("%w: %q: unsupported layout version %d", ErrInvalidFile, f.path, f.hdr.Version)
	}

	// Bound every header-supplied size against the actual file before
	// allocating, so a corrupt file errors instead of exhausting memory.
	fi, err := osf.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if f.hdr.TOCOffset < fileHeaderSize || f.hdr.TOCOffset > fi.Size() ||
		f.hdr.Grids > uint64(fi.Size()-f.hdr.TOCOffset)/tocEntryMinSize {
		f.Close()
		return fmt.Errorf("%w: %q: implausible table of contents", ErrInvalidFile, f.path)
	}

	if _, err := f.f.Seek(f.hdr.TOCOffset, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("%w: %q: %v", ErrInvalidFile, f.path, err)
	}
	f.entries = make([]tocEntry, f.hdr.Grids)
	for i := range f.entries {
		if err := readTOCEntry(f.f, &f.entries[i]); err != nil {
			f.Close()
			return fmt.Errorf("%w: %q: reading table of contents: %v", ErrInvalidFile, f.path, err)
		}
		e := &f.entries[i]
		if e.offset < fileHeaderSize || e.offset > f.hdr.TOCOffset ||
			e.length < 0 || e.length > f.hdr.TOCOffset-e.offset {
			f.Close()
			return fmt.Errorf("%w: %q: grid block location out of range", ErrInvalidFile, f.path)
		}
	}
	f.grids = make([]*Grid, len(f.entries))

	if !delayed {
		for i := range f.entries {
			if _, err := f.load(i); err != nil {
				f.Close()
				return err
			}
		}
	}
	return nil
}

// Grids returns every grid in the file in storage order, loading any payload
// that delayed opening left on disk.
func (f *File) Grids() ([]*Grid, error) {
	if f.f == nil && f.grids == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotOpen, f.path)
	}
	out := make([]*Grid, len(f.entries))
	for i := range f.entries {
		g, err := f.load(i)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// GridByName returns the single grid with the given name. A missing name
// yields ErrGridNotFound; a name stored more than once yields
// ErrAmbiguousGrid rather than silently picking the first match.
func (f *File) GridByName(name string) (*Grid, error) {
	if f.f == nil && f.grids == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotOpen, f.path)
	}
	match := -1
	for i, e := range f.entries {
		if e.name != name {
			continue
		}
		if match >= 0 {
			return nil, fmt.Errorf("%w: %q in %q", ErrAmbiguousGrid, name, f.path)
		}
		match = i
	}
	if match < 0 {
		return nil, fmt.Errorf("%w: %q in %q", ErrGridNotFound, name, f.path)
	}
	return f.load(match)
}

// Close releases the underlying descriptor. Grids already materialized stay
// valid; delayed grids not yet loaded become inaccessible.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

func (f *File) load(i int) (*Grid, error) {
	if f.grids[i] != nil {
		return f.grids[i], nil
	}
	if f.f == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotOpen, f.path)
	}
	if _, err := f.f.Seek(f.entries[i].offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFile, f.path, err)
	}
	g, err := readGridBlock(f.f, f.env, f.entries[i].length)
	if err != nil {
		return nil, fmt.Errorf("reading grid %q from %q: %w", f.entries[i].name, f.path, err)
	}
	f.grids[i] = g
	return g, nil
}

func readTOCEntry(r io.Reader, e *tocEntry) error {
	var fixed struct {
		Offset     int64
		Length     int64
		VoxelCount uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return err
	}
	name, err := readString(r)
	if err != nil {
		return err
	}
	e.offset = fixed.Offset
	e.length = fixed.Length
	e.voxelCount = fixed.VoxelCount
	e.name = name
	return nil
}

// readGridBlock decodes one grid block. blockLen is the block's size recorded
// in the table of contents; the metadata and voxel counts inside the block
// must be consistent with it before anything is allocated.
func readGridBlock(r io.Reader, env *Env, blockLen int64) (*Grid, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	class, err := readString(r)
	if err != nil {
		return nil, err
	}
	if err := env.checkClass(class); err != nil {
		return nil, err
	}

	var voxelSize float64
	if err := binary.Read(r, binary.LittleEndian, &voxelSize); err != nil {
		return nil, err
	}

	var metaCount uint32
	if err := binary.Read(r, binary.LittleEndian, &metaCount); err != nil {
		return nil, err
	}
	// A key/value pair occupies at least its two length prefixes.
	if int64(metaCount) > blockLen/8 {
		return nil, fmt.Errorf("%w: metadata count out of range", ErrInvalidFile)
	}
	meta := make(map[string]string, metaCount)
	for i := uint32(0); i < metaCount; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		meta[k] = v
	}

	var voxelCount uint64
	if err := binary.Read(r, binary.LittleEndian, &voxelCount); err != nil {
		return nil, err
	}
	if voxelCount > uint64(blockLen)/voxelRecordSize {
		return nil, fmt.Errorf("%w: voxel count out of range", ErrInvalidFile)
	}
	voxels := make(map[Coord]float64, voxelCount)
	for i := uint64(0); i < voxelCount; i++ {
		var rec voxelRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
		voxels[Coord{X: rec.X, Y: rec.Y, Z: rec.Z}] = rec.Value
	}

	return &Grid{
		Name:      name,
		Class:     class,
		VoxelSize: voxelSize,
		Meta:      meta,
		Voxels:    voxels,
	}, nil
}

// voxelRecord is the packed on-disk form of one active voxel.
type voxelRecord struct {
	X, Y, Z int32
	Value   float64
}

const (
	maxStringLen = 1 << 20 // sanity bound on length-prefixed strings

	// On-disk sizes used to bound header-supplied counts.
	fileHeaderSize  = 32 // magic, version, grid count, TOC offset
	tocEntryMinSize = 28 // fixed fields plus a name length prefix
	voxelRecordSize = 20 // three int32 coordinates plus one float64
)

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", errors.New("string length out of range")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
