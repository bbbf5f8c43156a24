package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyText(t *testing.T) {
	_, err := Split("", nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = Split("   \n\t ", nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	text := "A short paragraph that fits into one chunk."
	chunks, err := Split(text, nil, DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].SeqIndex)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len([]rune(text)), chunks[0].EndOffset)
}

func TestSplitSlidingWindowCount(t *testing.T) {
	// 1500 token-equivalents at 4 runes/token = 6000 runes. With target 512
	// and overlap 100 the window advances 1648 runes per step, giving spans
	// starting at 0, 1648, 3296 and 4944.
	p := Policy{TargetTokens: 512, OverlapTokens: 100, RunesPerToken: 4}
	text := strings.Repeat("a", 6000)

	chunks, err := Split(text, nil, p)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 2048, chunks[0].EndOffset)
	assert.Equal(t, 1648, chunks[1].StartOffset)
	assert.Equal(t, 4944, chunks[3].StartOffset)
	assert.Equal(t, 6000, chunks[3].EndOffset)
}

func TestSplitCoversTextWithOverlap(t *testing.T) {
	p := Policy{TargetTokens: 10, OverlapTokens: 2, RunesPerToken: 4}
	text := strings.Repeat("x", 473)

	chunks, err := Split(text, nil, p)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 473, chunks[len(chunks)-1].EndOffset)

	for i, c := range chunks {
		assert.Equal(t, i, c.SeqIndex)
		assert.Greater(t, c.EndOffset, c.StartOffset)
		if i > 0 {
			// Consecutive chunks overlap, so no rune falls in a gap.
			assert.LessOrEqual(t, c.StartOffset, chunks[i-1].EndOffset)
			assert.Greater(t, c.StartOffset, chunks[i-1].StartOffset)
		}
	}
}

func TestSplitOffsetsAreRunesNotBytes(t *testing.T) {
	// Multibyte text: rune offsets must index runes, not bytes.
	p := Policy{TargetTokens: 5, OverlapTokens: 1, RunesPerToken: 4}
	text := strings.Repeat("ä", 50)

	chunks, err := Split(text, nil, p)
	require.NoError(t, err)

	runes := []rune(text)
	for _, c := range chunks {
		assert.Equal(t, string(runes[c.StartOffset:c.EndOffset]), c.Text)
	}
	assert.Equal(t, 50, chunks[len(chunks)-1].EndOffset)
}

func TestSplitDoesNotCutAtomicBlock(t *testing.T) {
	p := Policy{TargetTokens: 25, OverlapTokens: 5, RunesPerToken: 4}
	// 100-rune window; the table occupies [80, 140) and may not be cut.
	text := strings.Repeat("p", 80) + strings.Repeat("t", 60) + strings.Repeat("q", 100)
	blocks := []Block{
		{Start: 0, End: 80, Page: 1, Section: "Intro"},
		{Start: 80, End: 140, Page: 1, Section: "Data", Atomic: true},
		{Start: 140, End: 240, Page: 2},
	}

	chunks, err := Split(text, blocks, p)
	require.NoError(t, err)

	for _, c := range chunks {
		inside := func(off int) bool { return off > 80 && off < 140 }
		assert.False(t, inside(c.StartOffset), "chunk %d starts inside the atomic block", c.SeqIndex)
		assert.False(t, inside(c.EndOffset), "chunk %d ends inside the atomic block", c.SeqIndex)
	}

	assert.Equal(t, 240, chunks[len(chunks)-1].EndOffset)
}

func TestSplitCarriesBlockMetadata(t *testing.T) {
	p := Policy{TargetTokens: 10, OverlapTokens: 0, RunesPerToken: 4}
	text := strings.Repeat("a", 40) + strings.Repeat("b", 40)
	blocks := []Block{
		{Start: 0, End: 40, Page: 1, Section: "One"},
		{Start: 40, End: 80, Page: 2, Section: "Two"},
	}

	chunks, err := Split(text, blocks, p)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "One", chunks[0].Section)
	assert.Equal(t, 2, chunks[1].Page)
	assert.Equal(t, "Two", chunks[1].Section)
}
