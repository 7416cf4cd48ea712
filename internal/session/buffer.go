package session

import (
	"strings"
	"sync"
	"time"
)

// OutputChunk is a single raw chunk of adapter output, appended to a
// session's buffer verbatim (never ANSI-stripped).
type OutputChunk struct {
	Data      []byte
	Timestamp time.Time
}

// outputBuffer is a byte-capped FIFO of output chunks.
//
// This is deliberately NOT a copy of the teacher's ringBuffer
// (_teacher_ref/process/runner.go): that implementation always evicts
// down to the byte cap, even when a single chunk is larger than it. This
// buffer instead preserves the invariant spec.md §3 requires: a single
// chunk larger than maxBytes is retained rather than split or dropped.
type outputBuffer struct {
	mu       sync.Mutex
	maxBytes int64
	size     int64
	chunks   []OutputChunk
}

func newOutputBuffer(maxBytes int64) *outputBuffer {
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &outputBuffer{maxBytes: maxBytes}
}

// append adds chunk, evicting the oldest chunks while the buffer holds
// more than one chunk and exceeds maxBytes. A single oversized chunk is
// never evicted against itself.
func (b *outputBuffer) append(chunk OutputChunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
	b.size += int64(len(chunk.Data))

	for b.size > b.maxBytes && len(b.chunks) > 1 {
		removed := b.chunks[0]
		b.size -= int64(len(removed.Data))
		b.chunks = b.chunks[1:]
	}
}

// totalBytes returns the current sum of chunk lengths.
func (b *outputBuffer) totalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// chunkCount returns the number of chunks currently retained.
func (b *outputBuffer) chunkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// joined returns the full concatenated output as a string.
func (b *outputBuffer) joined() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	sb.Grow(int(b.size))
	for _, c := range b.chunks {
		sb.Write(c.Data)
	}
	return sb.String()
}

// tail returns the last n bytes of the joined output.
func (b *outputBuffer) tail(n int) string {
	full := b.joined()
	if n <= 0 || n >= len(full) {
		return full
	}
	return full[len(full)-n:]
}
