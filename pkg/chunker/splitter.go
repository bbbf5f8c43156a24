// Package chunker splits extracted text into bounded, overlapping spans with
// stable rune offsets into the source text.
package chunker

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when there is nothing to chunk. An empty document
// is a pipeline failure, never a silently-successful zero-chunk document.
var ErrEmptyText = errors.New("no text to chunk")

// Policy expresses chunk sizing in token-equivalent units. Embedding models
// operate on tokens, not characters; lacking a model tokenizer we estimate
// RunesPerToken runes per token (4 is a safe average for Latin-script text).
type Policy struct {
	TargetTokens  int
	OverlapTokens int
	RunesPerToken int
}

func DefaultPolicy() Policy {
	return Policy{
		TargetTokens:  512,
		OverlapTokens: 100,
		RunesPerToken: 4,
	}
}

// Block is a structural unit recovered by the extractor. Start/End are rune
// offsets into the full extracted text. Atomic blocks (tables) are never cut
// in the middle.
type Block struct {
	Start   int
	End     int
	Page    int
	Section string
	Atomic  bool
}

// Chunk is one produced span. Offsets address the source text in runes.
type Chunk struct {
	SeqIndex    int
	Text        string
	StartOffset int
	EndOffset   int
	Page        int
	Section     string
}

// Split produces the chunk sequence for text. With structural blocks it snaps
// boundaries to block edges; without them it falls back to a naive sliding
// window. Text shorter than one target still yields exactly one chunk.
func Split(text string, blocks []Block, p Policy) ([]Chunk, error) {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil, ErrEmptyText
	}

	target := p.TargetTokens * p.RunesPerToken
	overlap := p.OverlapTokens * p.RunesPerToken
	if target <= 0 {
		target = DefaultPolicy().TargetTokens * DefaultPolicy().RunesPerToken
	}
	step := target - overlap
	if step <= 0 {
		step = target // overlap >= target would stall the window
	}

	var spans [][2]int
	if len(blocks) > 0 {
		spans = blockAlignedSpans(len(runes), blocks, target, step)
	} else {
		spans = slidingSpans(len(runes), target, step)
	}

	chunks := make([]Chunk, 0, len(spans))
	for i, span := range spans {
		c := Chunk{
			SeqIndex:    i,
			Text:        string(runes[span[0]:span[1]]),
			StartOffset: span[0],
			EndOffset:   span[1],
		}
		if b := blockAt(blocks, span[0]); b != nil {
			c.Page = b.Page
			c.Section = b.Section
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// slidingSpans is the naive window: fixed target length, fixed step, final
// partial window included.
func slidingSpans(total, target, step int) [][2]int {
	if total <= target {
		return [][2]int{{0, total}}
	}
	var spans [][2]int
	for i := 0; i < total; i += step {
		end := i + target
		if end > total {
			end = total
		}
		spans = append(spans, [2]int{i, end})
		if end == total {
			break
		}
	}
	return spans
}

// blockAlignedSpans computes naive windows first, then nudges each boundary
// so it never lands inside an atomic block: the end is pushed to the block's
// edge, and the following window starts from the adjusted position minus the
// regular overlap (clamped to the block edge as well).
func blockAlignedSpans(total int, blocks []Block, target, step int) [][2]int {
	if total <= target {
		return [][2]int{{0, total}}
	}

	overlap := target - step
	var spans [][2]int
	start := 0
	for start < total {
		end := start + target
		if end >= total {
			spans = append(spans, [2]int{start, total})
			break
		}

		end = snapBoundary(blocks, start, end)
		if end <= start {
			end = start + target // degenerate block layout, fall back to naive
			if end > total {
				end = total
			}
		}
		spans = append(spans, [2]int{start, end})
		if end == total {
			break
		}

		next := end - overlap
		// Never start the next chunk inside an atomic block either.
		if b := blockAt(blocks, next); b != nil && b.Atomic && next > b.Start {
			next = b.Start
		}
		if next <= start {
			next = end // forward progress beats preserving overlap
		}
		start = next
	}
	return spans
}

// snapBoundary moves a prospective chunk end out of the middle of a block.
// Non-atomic blocks are snapped to the nearest preceding block edge; atomic
// blocks always absorb the boundary to their own end.
func snapBoundary(blocks []Block, start, end int) int {
	b := blockAt(blocks, end)
	if b == nil || end == b.Start || end == b.End {
		return end
	}
	if b.Atomic {
		return b.End
	}
	if b.Start > start {
		return b.Start
	}
	// The window sits wholly inside one oversized paragraph; cut mid-block.
	return end
}

// blockAt returns the block containing the rune offset, or nil.
func blockAt(blocks []Block, offset int) *Block {
	for i := range blocks {
		if offset >= blocks[i].Start && offset < blocks[i].End {
			return &blocks[i]
		}
	}
	return nil
}
