package locate

import (
	"context"
	"errors"
	"testing"

	"github.com/modx/enginerw/pkg/demangle"
	"github.com/modx/enginerw/pkg/rules"
	"github.com/modx/enginerw/pkg/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const symbolTable = `
libunity.sym.so:     file format elf64-littleaarch64

SYMBOL TABLE:
00000000002f1a40 g     F .text	0000000000000180 _ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv
00000000002f1bc0 g     F .text	0000000000000040 _ZN18AsyncUploadManager27AsyncResourceUploadBlockingEi
00000000002f1c00 g     F .text	0000000000000020 _ZN3Foo3barEv
`

const nmOutput = `libiPhone-lib.tmp.a:AsyncUploadManager.o: 0000000000000120 T __ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv
libiPhone-lib.tmp.a:AsyncUploadManager.o: 0000000000000000 T __ZN18AsyncUploadManager27AsyncResourceUploadBlockingEi
libiPhone-lib.tmp.a:Other.o: 0000000000000300 T __ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv
libiPhone-lib.tmp.a:Other.o: 0000000000000400 T __ZN3Foo3barEv
`

type failingDemangler struct{}

func (failingDemangler) Demangle(context.Context, string) (string, error) {
	return "", errors.New("c++filt crashed")
}

func TestFindSymbolsOnlyAcceptsExactDemangledName(t *testing.T) {
	sym := rules.Symbol{
		DemangledName: "AsyncUploadManager::AsyncResourceUploadBlocking()",
		Pattern:       `^.*_ZN18AsyncUploadManager27AsyncResourceUploadBlocking.*$`,
	}

	got, err := FindSymbols(context.Background(), symbolTable, sym, demangle.Native{}, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "_ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv", got[0].Mangled)
	assert.Equal(t, sym.DemangledName, got[0].Demangled)
	assert.Empty(t, got[0].Object)
	assert.True(t, len(got[0].Line) > len(got[0].Mangled))
}

func TestFindSymbolsNotFound(t *testing.T) {
	sym := rules.Symbol{
		DemangledName: "AsyncUploadManager::AsyncResourceUploadBlocking(ThreadedStreamBuffer&)",
		Pattern:       `^.*_ZN18AsyncUploadManager27AsyncResourceUploadBlocking.*$`,
	}

	_, err := FindSymbols(context.Background(), symbolTable, sym, demangle.Native{}, false)
	var nf *SymbolNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 2, nf.Matches)
	assert.False(t, errors.Is(err, rules.ErrConfiguration))
}

func TestFindSymbolsArchive(t *testing.T) {
	sym := rules.Symbol{
		DemangledName: "AsyncUploadManager::AsyncResourceUploadBlocking()",
		Pattern:       `^libiPhone-lib\.tmp\.a:(\w+\.o):.*_ZN18AsyncUploadManager27AsyncResourceUploadBlocking.*$`,
	}

	got, err := FindSymbols(context.Background(), nmOutput, sym, demangle.Native{}, true)
	require.NoError(t, err)
	require.Len(t, got, 2)

	objects, byObject := GroupByObject(got)
	assert.Equal(t, []string{"AsyncUploadManager.o", "Other.o"}, objects)
	assert.Len(t, byObject["AsyncUploadManager.o"], 1)
	assert.Equal(t, "__ZN18AsyncUploadManager27AsyncResourceUploadBlockingEv", byObject["Other.o"][0].Mangled)
}

func TestFindSymbolsConfigErrors(t *testing.T) {
	_, err := FindSymbols(context.Background(), nmOutput, rules.Symbol{Pattern: "("}, demangle.Native{}, false)
	assert.True(t, errors.Is(err, rules.ErrConfiguration))

	_, err = FindSymbols(context.Background(), nmOutput, rules.Symbol{Pattern: "Foo"}, demangle.Native{}, true)
	assert.True(t, errors.Is(err, rules.ErrConfiguration))
}

func TestFindSymbolsDemanglerError(t *testing.T) {
	_, err := FindSymbols(context.Background(), symbolTable, rules.Symbol{Pattern: "_ZN3Foo3barEv"}, failingDemangler{}, false)
	assert.EqualError(t, err, "c++filt crashed")
}

const gnuThumb = `
libunity.so:     file format elf32-littlearm

Disassembly of section .text:

00123456 <_ZN3Foo3barEv>:
  123456:	b510      	push	{r4, lr}
  123458:	2800      	cmp	r0, #0
  12345a:	d101      	bne.n	123460 <_ZN3Foo3barEv+0xa>
  12345c:	f000 f802 	bl	123464 <_ZN3Foo3barEv+0xe>
  123460:	d101      	bne.n	123466 <_ZN3Foo3barEv+0x10>
  123462:	bd10      	pop	{r4, pc}
`

const llvmARM = `
00001000 <_ZN3Foo3barEv>:
    1000: 00 f0 20 e3  	nop
    1004: 1e ff 2f e1  	bx	lr
`

func TestFindInstruction(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		layout toolchain.Layout
		code   []byte
		index  int
		want   uint64
	}{
		{"single match", llvmARM, toolchain.LayoutBytes, []byte{0x00, 0xf0, 0x20, 0xe3}, -1, 0x1000},
		{"single match ignores index", llvmARM, toolchain.LayoutBytes, []byte{0x1e, 0xff, 0x2f, 0xe1}, 7, 0x1004},
		{"index selects first", gnuThumb, toolchain.LayoutHalfwords, []byte{0x01, 0xd1}, 0, 0x12345a},
		{"index selects second", gnuThumb, toolchain.LayoutHalfwords, []byte{0x01, 0xd1}, 1, 0x123460},
		{"thumb2", gnuThumb, toolchain.LayoutHalfwords, []byte{0x00, 0xf0, 0x02, 0xf8}, -1, 0x12345c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FindInstruction(tt.text, tt.code, tt.index, tt.layout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Address)
			assert.Contains(t, m.Line, ":")
		})
	}
}

func TestFindInstructionNotFound(t *testing.T) {
	_, err := FindInstruction(llvmARM, []byte{0x00, 0x00, 0xa0, 0xe3}, -1, toolchain.LayoutBytes)
	var nf *InstructionNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "failed to find the instruction 0000A0E3", err.Error())
}

func TestFindInstructionAmbiguous(t *testing.T) {
	for _, index := range []int{-1, 2} {
		_, err := FindInstruction(gnuThumb, []byte{0x01, 0xd1}, index, toolchain.LayoutHalfwords)
		require.Error(t, err)
		assert.True(t, errors.Is(err, rules.ErrConfiguration), "index %d", index)
		assert.Contains(t, err.Error(), "instructions=2")
	}
}
