package magic

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

type Magic uint32

const (
	Magic32    Magic = 0xfeedface
	Magic64    Magic = 0xfeedfacf
	MagicFatBE Magic = 0xcafebabe
	MagicFatLE Magic = 0xbebafeca
)

var (
	elfMagic     = []byte{0x7f, 'E', 'L', 'F'}
	archiveMagic = []byte("!<arch>\n")
)

// Kind is the container format of a native library.
type Kind int

const (
	Unknown Kind = iota
	ELF
	Archive
	MachO
)

func (k Kind) String() string {
	switch k {
	case ELF:
		return "ELF"
	case Archive:
		return "ar archive"
	case MachO:
		return "MachO"
	}
	return "unknown"
}

// Detect reads the leading bytes of r.
func Detect(r io.Reader) (Kind, error) {
	var head [8]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return Unknown, fmt.Errorf("failed to read magic: %w", err)
	}
	switch {
	case n >= len(archiveMagic) && bytes.Equal(head[:len(archiveMagic)], archiveMagic):
		return Archive, nil
	case n >= 4 && bytes.Equal(head[:4], elfMagic):
		return ELF, nil
	case n >= 4:
		switch Magic(binary.LittleEndian.Uint32(head[:4])) {
		case Magic32, Magic64, MagicFatBE, MagicFatLE:
			return MachO, nil
		}
	}
	return Unknown, nil
}

// DetectFile opens path on fs and detects its format.
func DetectFile(fs afero.Fs, path string) (Kind, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()
	return Detect(f)
}

// IsArchive reports whether path is a Unix ar archive.
func IsArchive(fs afero.Fs, path string) (bool, error) {
	k, err := DetectFile(fs, path)
	return k == Archive, err
}
