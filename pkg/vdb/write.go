package vdb

import (
	"encoding/binary"
	"io"
	"os"
	"sort"
)

// Write stores the given grids in a new container file at path, truncating
// any existing file. The format has no append mode: the whole collection is
// written in one bulk operation, grid blocks first, then the table of
// contents, and finally the header is patched with the TOC offset.
func Write(path string, grids []*Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f, grids); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func write(f *os.File, grids []*Grid) error {
	// Placeholder header, patched after the TOC offset is known.
	if err := binary.Write(f, binary.LittleEndian, &fileHeader{}); err != nil {
		return err
	}

	entries := make([]tocEntry, len(grids))
	for i, g := range grids {
		start, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		if err := writeGridBlock(f, g); err != nil {
			return err
		}
		end, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		entries[i] = tocEntry{
			offset:     start,
			length:     end - start,
			voxelCount: uint64(g.Len()),
			name:       g.Name,
		}
	}

	tocOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	for i := range entries {
		if err := writeTOCEntry(f, &entries[i]); err != nil {
			return err
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hdr := fileHeader{
		Magic:     Magic,
		Version:   FormatVersion,
		Grids:     uint64(len(grids)),
		TOCOffset: tocOffset,
	}
	return binary.Write(f, binary.LittleEndian, &hdr)
}

func writeTOCEntry(w io.Writer, e *tocEntry) error {
	fixed := struct {
		Offset     int64
		Length     int64
		VoxelCount uint64
	}{e.offset, e.length, e.voxelCount}
	if err := binary.Write(w, binary.LittleEndian, &fixed); err != nil {
		return err
	}
	return writeString(w, e.name)
}

func writeGridBlock(w io.Writer, g *Grid) error {
	if err := writeString(w, g.Name); err != nil {
		return err
	}
	class := g.Class
	if class == "" {
		class = ClassUnknown
	}
	if err := writeString(w, class); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, g.VoxelSize); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(g.Meta))); err != nil {
		return err
	}
	for _, k := range sortedMetaKeys(g.Meta) {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, g.Meta[k]); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(g.Voxels))); err != nil {
		return err
	}
	for _, c := range SortedCoords(g.Voxels) {
		rec := voxelRecord{X: c.X, Y: c.Y, Z: c.Z, Value: g.Voxels[c]}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return nil
}

// SortedCoords returns the active coordinates of a voxel map in canonical
// X, Y, Z order. The writer and cross-format converters rely on this to
// produce deterministic output from the unordered map.
func SortedCoords(voxels map[Coord]float64) []Coord {
	coords := make([]Coord, 0, len(voxels))
	for c := range voxels {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

func sortedMetaKeys(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
