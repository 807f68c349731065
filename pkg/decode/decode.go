// Package decode renders configured machine code as assembly so rule
// authors can check a hex string says what its description claims.
package decode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modx/enginerw/pkg/rules"
	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// ErrThumb is returned for 2 byte ARMv7 code, which is Thumb and not decoded.
var ErrThumb = errors.New("thumb decoding is not supported")

// Describe decodes code for arch and returns the GNU syntax of each
// instruction joined by "; ".
func Describe(arch rules.Architecture, code []byte) (string, error) {
	if len(code) == 0 {
		return "", errors.New("empty machine code")
	}

	switch arch {
	case rules.ARM64:
		return each(code, 4, func(b []byte) (string, int, error) {
			inst, err := arm64asm.Decode(b)
			if err != nil {
				return "", 0, err
			}
			return arm64asm.GNUSyntax(inst), 4, nil
		})
	case rules.ARMv7:
		if len(code) != 4 {
			return "", ErrThumb
		}
		inst, err := armasm.Decode(code, armasm.ModeARM)
		if err != nil {
			return "", err
		}
		return armasm.GNUSyntax(inst), nil
	case rules.X86, rules.X86_64:
		mode := 32
		if arch == rules.X86_64 {
			mode = 64
		}
		return each(code, 1, func(b []byte) (string, int, error) {
			inst, err := x86asm.Decode(b, mode)
			if err != nil {
				return "", 0, err
			}
			return x86asm.GNUSyntax(inst, 0, nil), inst.Len, nil
		})
	}
	return "", fmt.Errorf("unsupported architecture %s", arch)
}

func each(code []byte, min int, dec func([]byte) (string, int, error)) (string, error) {
	var out []string
	for off := 0; off < len(code); {
		if len(code)-off < min {
			return "", fmt.Errorf("truncated instruction at byte %d", off)
		}
		s, n, err := dec(code[off:])
		if err != nil {
			return "", fmt.Errorf("failed to decode at byte %d: %w", off, err)
		}
		out = append(out, s)
		off += n
	}
	return strings.Join(out, "; "), nil
}
