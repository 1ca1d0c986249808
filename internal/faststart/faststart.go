package faststart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrAlreadyFastStart reports that moov already precedes mdat. Callers
	// treat it as a successful no-op.
	ErrAlreadyFastStart = errors.New("moov already precedes mdat")
	// ErrNotMP4 reports a file without both a moov and an mdat atom.
	ErrNotMP4 = errors.New("moov or mdat atom missing")
	// ErrCompressedMoov reports a cmov header, which cannot be patched.
	ErrCompressedMoov = errors.New("compressed moov not supported")
	// ErrOffsetOverflow reports a 32-bit chunk offset pushed past 4 GiB.
	ErrOffsetOverflow = errors.New("stco offset overflow")
)

type atom struct {
	kind   string
	offset int64
	size   int64
}

// Relocate writes a copy of inPath to outPath with moov moved in front of
// the first mdat.
func Relocate(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	atoms, err := topLevelAtoms(in, info.Size())
	if err != nil {
		return err
	}

	moovIdx, mdatIdx := -1, -1
	for i, a := range atoms {
		switch a.kind {
		case "moov":
			if moovIdx < 0 {
				moovIdx = i
			}
		case "mdat":
			if mdatIdx < 0 {
				mdatIdx = i
			}
		}
	}
	if moovIdx < 0 || mdatIdx < 0 {
		return ErrNotMP4
	}
	if moovIdx < mdatIdx {
		return ErrAlreadyFastStart
	}

	moovAtom := atoms[moovIdx]
	moov := make([]byte, moovAtom.size)
	if _, err := in.ReadAt(moov, moovAtom.offset); err != nil {
		return fmt.Errorf("read moov: %w", err)
	}
	shift := func(offset uint64) uint64 {
		if int64(offset) < moovAtom.offset {
			return offset + uint64(moovAtom.size)
		}
		return offset
	}
	if err := patchOffsets(moov[headerLen(moov):], shift); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := writeLayout(out, in, atoms, moovIdx, mdatIdx, moov); err != nil {
		out.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}

// Apply relocates path in place through a temporary sibling file. The file
// mode is preserved.
func Apply(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".faststart")
	if err := Relocate(path, tmp); err != nil {
		return err
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeLayout(out io.Writer, in io.ReaderAt, atoms []atom, moovIdx, mdatIdx int, moov []byte) error {
	copyAtom := func(a atom) error {
		_, err := io.Copy(out, io.NewSectionReader(in, a.offset, a.size))
		return err
	}
	for i := 0; i < mdatIdx; i++ {
		if err := copyAtom(atoms[i]); err != nil {
			return err
		}
	}
	if _, err := out.Write(moov); err != nil {
		return err
	}
	for i := mdatIdx; i < len(atoms); i++ {
		if i == moovIdx {
			continue
		}
		if err := copyAtom(atoms[i]); err != nil {
			return err
		}
	}
	return nil
}

func topLevelAtoms(r io.ReaderAt, fileSize int64) ([]atom, error) {
	var atoms []atom
	header := make([]byte, 16)
	for offset := int64(0); offset < fileSize; {
		if fileSize-offset < 8 {
			return nil, fmt.Errorf("truncated atom header at %d", offset)
		}
		if _, err := r.ReadAt(header[:8], offset); err != nil {
			return nil, err
		}
		size := int64(binary.BigEndian.Uint32(header[:4]))
		kind := string(header[4:8])
		switch size {
		case 0:
			size = fileSize - offset
		case 1:
			if _, err := r.ReadAt(header[8:16], offset+8); err != nil {
				return nil, err
			}
			size = int64(binary.BigEndian.Uint64(header[8:16]))
		}
		if size < 8 || offset+size > fileSize {
			return nil, fmt.Errorf("invalid %q atom size %d at %d", kind, size, offset)
		}
		atoms = append(atoms, atom{kind: kind, offset: offset, size: size})
		offset += size
	}
	return atoms, nil
}

func headerLen(buf []byte) int {
	if len(buf) >= 16 && binary.BigEndian.Uint32(buf[:4]) == 1 {
		return 16
	}
	return 8
}

var containers = map[string]struct{}{
	"moov": {}, "trak": {}, "mdia": {}, "minf": {}, "stbl": {}, "edts": {}, "dinf": {},
}

// patchOffsets walks the children in buf and rewrites every chunk offset
// table through shift.
func patchOffsets(buf []byte, shift func(uint64) uint64) error {
	for len(buf) >= 8 {
		size := uint64(binary.BigEndian.Uint32(buf[:4]))
		kind := string(buf[4:8])
		hdr := 8
		if size == 1 {
			if len(buf) < 16 {
				return fmt.Errorf("truncated %q atom", kind)
			}
			size = binary.BigEndian.Uint64(buf[8:16])
			hdr = 16
		} else if size == 0 {
			size = uint64(len(buf))
		}
		if size < uint64(hdr) || size > uint64(len(buf)) {
			return fmt.Errorf("invalid %q atom size %d", kind, size)
		}
		body := buf[hdr:size]
		switch kind {
		case "cmov":
			return ErrCompressedMoov
		case "stco":
			if err := patchTable(body, 4, shift); err != nil {
				return err
			}
		case "co64":
			if err := patchTable(body, 8, shift); err != nil {
				return err
			}
		default:
			if _, ok := containers[kind]; ok {
				if err := patchOffsets(body, shift); err != nil {
					return err
				}
			}
		}
		buf = buf[size:]
	}
	return nil
}

func patchTable(body []byte, width int, shift func(uint64) uint64) error {
	if len(body) < 8 {
		return errors.New("truncated chunk offset table")
	}
	count := int(binary.BigEndian.Uint32(body[4:8]))
	entries := body[8:]
	if len(entries) < count*width {
		return errors.New("chunk offset table shorter than its entry count")
	}
	for i := 0; i < count; i++ {
		entry := entries[i*width : (i+1)*width]
		if width == 4 {
			next := shift(uint64(binary.BigEndian.Uint32(entry)))
			if next > 0xFFFFFFFF {
				return ErrOffsetOverflow
			}
			binary.BigEndian.PutUint32(entry, uint32(next))
			continue
		}
		binary.BigEndian.PutUint64(entry, shift(binary.BigEndian.Uint64(entry)))
	}
	return nil
}
