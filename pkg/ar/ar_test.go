package ar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name string
	data []byte
	bsd  bool // use the #1/N extended name form
}

type location struct {
	offset int64
	length int64
}

// buildArchive returns an archive of members and the expected data location
// of each one, keyed by position.
func buildArchive(t *testing.T, members []member) ([]byte, []location) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(Magic)
	var locs []location
	for i, m := range members {
		size := len(m.data)
		name := m.name + "/"
		var ext []byte
		if m.bsd {
			ext = append([]byte(m.name), 0, 0, 0)
			name = fmt.Sprintf("#1/%d", len(ext))
			size += len(ext)
		}
		hdr := fmt.Sprintf("%-16s%-12d%-6d%-6d%-8o%-10d`\n", name, 1700000000+i, 0, 0, 0o644, size)
		require.Len(t, hdr, HeaderSize)
		buf.WriteString(hdr)
		buf.Write(ext)
		locs = append(locs, location{offset: int64(buf.Len()), length: int64(len(m.data))})
		buf.Write(m.data)
		if size%2 != 0 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), locs
}

func testMembers() []member {
	return []member{
		{name: "__.SYMDEF SORTED", data: []byte("symdef-table"), bsd: true},
		{name: "a.o", data: []byte("AAAAA")},
		{name: "AsyncUploadManager.cpp.o", data: []byte("object code of a long name"), bsd: true},
		{name: "dup.o", data: []byte("first")},
		{name: "b.o", data: []byte("BB")},
		{name: "dup.o", data: []byte("second!")},
	}
}

func TestParse(t *testing.T) {
	members := testMembers()
	data, locs := buildArchive(t, members)

	x, err := Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, x.Members(), len(members))

	for i, m := range members {
		if m.name == "dup.o" {
			continue
		}
		it, err := x.Lookup(m.name)
		require.NoError(t, err, m.name)
		assert.Equal(t, locs[i].offset, it.Offset, m.name)
		assert.Equal(t, locs[i].length, it.Length, m.name)
		assert.Equal(t, m.data, data[it.Offset:it.Offset+it.Length], m.name)
	}
}

func TestLookupDuplicate(t *testing.T) {
	data, _ := buildArchive(t, testMembers())
	x, err := Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	assert.True(t, x.IsDuplicate("dup.o"))
	_, err = x.Lookup("dup.o")
	assert.True(t, errors.Is(err, ErrNotImplemented))

	_, err = x.Lookup("missing.o")
	assert.True(t, errors.Is(err, ErrMemberNotFound))
}

func TestParseBadMagic(t *testing.T) {
	data := []byte("\x7fELF not an archive at all")
	_, err := Parse(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestParseGNULongNames(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	strtab := "a_very_long_object_file_name.o/\n"
	fmt.Fprintf(&buf, "%-16s%-12d%-6d%-6d%-8o%-10d`\n", "//", 0, 0, 0, 0, len(strtab))
	buf.WriteString(strtab)
	fmt.Fprintf(&buf, "%-16s%-12d%-6d%-6d%-8o%-10d`\n", "/0", 0, 0, 0, 0o644, 4)
	off := int64(buf.Len())
	buf.WriteString("ELF!")

	data := buf.Bytes()
	x, err := Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	it, err := x.Lookup("a_very_long_object_file_name.o")
	require.NoError(t, err)
	assert.Equal(t, off, it.Offset)
	assert.Equal(t, int64(4), it.Length)
}

func TestOpen(t *testing.T) {
	data, _ := buildArchive(t, testMembers())
	x, err := Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	sr, err := x.Open(bytes.NewReader(data), "AsyncUploadManager.cpp.o")
	require.NoError(t, err)
	got, err := io.ReadAll(sr)
	require.NoError(t, err)
	assert.Equal(t, []byte("object code of a long name"), got)
}

func TestSplicePreservesArchive(t *testing.T) {
	data, _ := buildArchive(t, testMembers())

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "libiPhone-lib.a", data, 0o644))
	f, err := fs.OpenFile("libiPhone-lib.a", os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	x, err := Parse(f, int64(len(data)))
	require.NoError(t, err)

	patched := []byte("OBJECT code of a long name")
	require.NoError(t, x.Splice(f, "AsyncUploadManager.cpp.o", patched))

	got, err := afero.ReadFile(fs, "libiPhone-lib.a")
	require.NoError(t, err)
	require.Len(t, got, len(data))

	it, _ := x.Lookup("AsyncUploadManager.cpp.o")
	assert.Equal(t, patched, got[it.Offset:it.Offset+it.Length])
	assert.Equal(t, data[:it.Offset], got[:it.Offset])
	assert.Equal(t, data[it.Offset+it.Length:], got[it.Offset+it.Length:])
	assert.Equal(t,
		data[TimestampOffset:TimestampOffset+TimestampSize],
		got[TimestampOffset:TimestampOffset+TimestampSize])

	assert.Error(t, x.Splice(f, "a.o", []byte("too long for a.o")))
	assert.ErrorIs(t, x.Splice(f, "dup.o", []byte("first")), ErrNotImplemented)
}
