// Package ar indexes the members of a Unix static archive so that a patched
// member can be written back in place.
package ar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// Magic is the global archive header.
	Magic = "!<arch>\n"
	// HeaderSize is the size of a member header.
	HeaderSize = 60
	// TimestampOffset is the file offset of the date field of the first member
	// header, which ranlib sets to the archive's symbol table timestamp.
	TimestampOffset = len(Magic) + 16
	// TimestampSize is the width of a header date field.
	TimestampSize = 12

	bsdLongNamePrefix = "#1/"
	headerTerminator  = "`\n"
)

var (
	// ErrNotImplemented is returned when a member name occurs more than once:
	// picking one of them silently could patch the wrong object.
	ErrNotImplemented = errors.New("not implemented")
	// ErrMemberNotFound is returned for names that are not in the archive.
	ErrMemberNotFound = errors.New("archive member not found")
	// ErrBadMagic is returned when the file is not an archive.
	ErrBadMagic = errors.New("not an ar archive")
)

// Item is the location of a member's data within the archive.
type Item struct {
	Name string
	// Header is the file offset of the member header.
	Header int64
	// Offset is the file offset of the member data, after any extended name.
	Offset int64
	// Length is the size of the member data, excluding any extended name.
	Length int64
}

// Index maps member names to their location.
type Index struct {
	items   map[string]Item
	dups    map[string]int
	members []Item
}

// Parse indexes the archive read from r, which is size bytes long.
func Parse(r io.ReaderAt, size int64) (*Index, error) {
	magic := make([]byte, len(Magic))
	if _, err := r.ReadAt(magic, 0); err != nil {
		return nil, fmt.Errorf("failed to read archive magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, ErrBadMagic
	}

	x := &Index{
		items: make(map[string]Item),
		dups:  make(map[string]int),
	}

	var strtab []byte
	hdr := make([]byte, HeaderSize)
	off := int64(len(Magic))
	for off+HeaderSize <= size {
		if _, err := r.ReadAt(hdr, off); err != nil {
			return nil, fmt.Errorf("failed to read member header at %#x: %w", off, err)
		}
		if string(hdr[58:60]) != headerTerminator {
			return nil, fmt.Errorf("invalid member header at %#x", off)
		}

		msize, err := strconv.ParseInt(strings.TrimSpace(string(hdr[48:58])), 10, 64)
		if err != nil || msize < 0 {
			return nil, fmt.Errorf("invalid member size at %#x: %q", off, hdr[48:58])
		}

		name := strings.TrimRight(string(hdr[:16]), " \x00")
		data := off + HeaderSize
		length := msize

		switch {
		case strings.HasPrefix(name, bsdLongNamePrefix):
			n, err := strconv.ParseInt(strings.TrimSpace(name[len(bsdLongNamePrefix):]), 10, 64)
			if err != nil || n < 0 || n > msize {
				return nil, fmt.Errorf("invalid extended name length at %#x: %q", off, name)
			}
			buf := make([]byte, n)
			if _, err := r.ReadAt(buf, data); err != nil {
				return nil, fmt.Errorf("failed to read extended name at %#x: %w", data, err)
			}
			name = strings.TrimRight(string(buf), "\x00")
			data += n
			length -= n
		case name == "//":
			strtab = make([]byte, msize)
			if _, err := r.ReadAt(strtab, data); err != nil {
				return nil, fmt.Errorf("failed to read name table: %w", err)
			}
		case name == "/":
		case strings.HasPrefix(name, "/"):
			name, err = gnuLongName(strtab, name)
			if err != nil {
				return nil, fmt.Errorf("member at %#x: %w", off, err)
			}
		default:
			name = strings.TrimSuffix(name, "/")
		}

		x.add(Item{Name: name, Header: off, Offset: data, Length: length})

		off += HeaderSize + msize
		if off%2 != 0 {
			off++
		}
	}

	return x, nil
}

func gnuLongName(strtab []byte, ref string) (string, error) {
	i, err := strconv.Atoi(ref[1:])
	if err != nil || i < 0 || i >= len(strtab) {
		return "", fmt.Errorf("invalid long name reference %q", ref)
	}
	name := strtab[i:]
	if end := bytes.IndexByte(name, '\n'); end >= 0 {
		name = name[:end]
	}
	return strings.TrimSuffix(string(name), "/"), nil
}

func (x *Index) add(it Item) {
	x.members = append(x.members, it)
	if _, ok := x.items[it.Name]; ok {
		x.dups[it.Name]++
		return
	}
	x.items[it.Name] = it
}

// Lookup returns the location of the member called name.
func (x *Index) Lookup(name string) (Item, error) {
	if _, ok := x.dups[name]; ok {
		return Item{}, fmt.Errorf("duplicate object files: %s: %w", name, ErrNotImplemented)
	}
	it, ok := x.items[name]
	if !ok {
		return Item{}, fmt.Errorf("%s: %w", name, ErrMemberNotFound)
	}
	return it, nil
}

// Members returns every member in archive order, duplicates included.
func (x *Index) Members() []Item {
	return x.members
}

// IsDuplicate reports whether name occurs more than once.
func (x *Index) IsDuplicate(name string) bool {
	_, ok := x.dups[name]
	return ok
}

// Open returns a reader over the data of the member called name.
func (x *Index) Open(r io.ReaderAt, name string) (*io.SectionReader, error) {
	it, err := x.Lookup(name)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(r, it.Offset, it.Length), nil
}

// Splice writes data over the member called name. The data must have the
// member's exact length, so every other byte of the archive is preserved.
func (x *Index) Splice(w io.WriterAt, name string, data []byte) error {
	it, err := x.Lookup(name)
	if err != nil {
		return err
	}
	if int64(len(data)) != it.Length {
		return fmt.Errorf("member %s changed size: %d != %d", name, len(data), it.Length)
	}
	if _, err := w.WriteAt(data, it.Offset); err != nil {
		return fmt.Errorf("failed to write member %s: %w", name, err)
	}
	return nil
}
