package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log/handlers/cli"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

var normalPadding = cli.Default.Padding

// Indent indents apex log line to supplied level
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// CopyFile copies src to dst on fs, replacing dst, and returns the number of
// bytes copied.
func CopyFile(fs afero.Fs, src, dst string) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := fs.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return n, nil
}

// FileSize returns the humanized size of path, or "?" when it cannot be read.
func FileSize(fs afero.Fs, path string) string {
	info, err := fs.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}
