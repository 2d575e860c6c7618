// Package pipeline implements the streaming generation pipeline (spec §4.F):
// it turns a raw backend token stream into dialect-neutral generation
// events while concurrently detecting stop sequences and inline tool
// calls, honoring a bounded rolling buffer and cooperative cancellation.
package pipeline

// MaxBuffer is the largest the rolling buffer is allowed to grow before
// pruning, in characters.
const MaxBuffer = 60_000

// PruneTo is the size the buffer is pruned down to once it exceeds
// MaxBuffer.
const PruneTo = 40_000

// ToolScanWindow bounds how far back inline tool-call detection scans
// the rolling buffer, per §4.F's "suffix of up to ~45000 chars".
const ToolScanWindow = 45_000

// RollingBuffer holds a bounded window of recently generated text plus
// the bookkeeping needed to translate between buffer-local and global
// character offsets once the front has been pruned.
type RollingBuffer struct {
	data        []rune
	startOffset int // characters dropped from the front so far
}

// NewRollingBuffer returns an empty buffer.
func NewRollingBuffer() *RollingBuffer {
	return &RollingBuffer{}
}

// Append adds text to the buffer and prunes if it now exceeds MaxBuffer.
// Returns the number of characters dropped by pruning (0 if none).
func (b *RollingBuffer) Append(text string) int {
	b.data = append(b.data, []rune(text)...)
	if len(b.data) <= MaxBuffer {
		return 0
	}
	drop := len(b.data) - PruneTo
	b.data = b.data[drop:]
	b.startOffset += drop
	return drop
}

// Len returns the number of characters currently held in the buffer.
func (b *RollingBuffer) Len() int { return len(b.data) }

// StartOffset is the global offset of the first character still held.
func (b *RollingBuffer) StartOffset() int { return b.startOffset }

// GlobalLen is the total number of characters ever appended (including
// pruned ones): startOffset + len(data).
func (b *RollingBuffer) GlobalLen() int { return b.startOffset + len(b.data) }

// localIndex converts a global offset to a local buffer index, clipped
// to [0, len(data)].
func (b *RollingBuffer) localIndex(global int) int {
	local := global - b.startOffset
	if local < 0 {
		return 0
	}
	if local > len(b.data) {
		return len(b.data)
	}
	return local
}

// Slice returns the text in the global range [from, to), clipped to
// what the buffer still holds (characters before StartOffset() have
// already been dropped and, per the pipeline's invariant, already
// emitted before the prune that dropped them).
func (b *RollingBuffer) Slice(from, to int) string {
	if to <= from {
		return ""
	}
	li, lj := b.localIndex(from), b.localIndex(to)
	if lj <= li {
		return ""
	}
	return string(b.data[li:lj])
}

// Tail returns the last n characters held (or the whole buffer if
// shorter), plus the global offset of the first returned character.
func (b *RollingBuffer) Tail(n int) (string, int) {
	start := len(b.data) - n
	if start < 0 {
		start = 0
	}
	return string(b.data[start:]), b.startOffset + start
}
