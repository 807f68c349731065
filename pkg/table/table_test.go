package table

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRenderAlignsColumns(t *testing.T) {
	tb := NewTable()
	tb.SetMaxWidth(0)
	tb.SetHeaders("MEMBER", "OFFSET", "SIZE")
	tb.AppendRow("a.o", "0x44", "12 B")
	tb.AppendRow("ThreadedStreamBuffer.o", "0x1a0", "1.2 kB")

	got := lines(tb.Render())
	require.Len(t, got, 3)
	col := strings.Index(got[0], "OFFSET")
	assert.Equal(t, len("ThreadedStreamBuffer.o")+2, col)
	for _, l := range got[1:] {
		assert.Equal(t, "0x", l[col:col+2])
	}
	assert.Equal(t, 2, tb.Len())
}

func TestRenderTruncatesLastColumn(t *testing.T) {
	tb := NewTable()
	tb.SetMaxWidth(12)
	tb.SetHeaders("A", "DESCRIPTION")
	tb.AppendRow("x", "a description that is far too long")

	for _, l := range lines(tb.Render()) {
		assert.LessOrEqual(t, lipgloss.Width(l), 12, l)
	}
}

func TestRenderRightAlign(t *testing.T) {
	tb := NewTable()
	tb.SetMaxWidth(0)
	tb.SetHeaders("COUNT", "NAME")
	tb.SetColumnAlignment(0, lipgloss.Right)
	tb.AppendRow("7", "x")

	got := lines(tb.Render())
	assert.True(t, strings.HasPrefix(got[1], "    7"), got[1])
}

func TestRenderEmpty(t *testing.T) {
	assert.Empty(t, NewTable().Render())
}
