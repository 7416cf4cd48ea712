package session

import (
	"testing"
	"time"
)

func TestOutputBufferTrimsOldestChunks(t *testing.T) {
	buf := newOutputBuffer(10)
	buf.append(OutputChunk{Data: []byte("hello"), Timestamp: time.Now()}) // 5
	buf.append(OutputChunk{Data: []byte("world"), Timestamp: time.Now()}) // 10
	buf.append(OutputChunk{Data: []byte("!!!"), Timestamp: time.Now()})   // +3, trims "hello"

	got := buf.joined()
	if got != "world!!!" {
		t.Fatalf("joined() = %q, want %q", got, "world!!!")
	}
	if buf.totalBytes() != 8 {
		t.Fatalf("totalBytes() = %d, want 8", buf.totalBytes())
	}
}

func TestOutputBufferRetainsSingleOversizedChunk(t *testing.T) {
	buf := newOutputBuffer(4)
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'x'
	}
	buf.append(OutputChunk{Data: big, Timestamp: time.Now()})

	if buf.chunkCount() != 1 {
		t.Fatalf("chunkCount() = %d, want 1 (oversized chunk must not be evicted against itself)", buf.chunkCount())
	}
	if buf.totalBytes() != 100 {
		t.Fatalf("totalBytes() = %d, want 100", buf.totalBytes())
	}
}

func TestOutputBufferTailReturnsSuffix(t *testing.T) {
	buf := newOutputBuffer(1000)
	buf.append(OutputChunk{Data: []byte("0123456789"), Timestamp: time.Now()})

	if got := buf.tail(4); got != "6789" {
		t.Fatalf("tail(4) = %q, want %q", got, "6789")
	}
	if got := buf.tail(100); got != "0123456789" {
		t.Fatalf("tail(100) = %q, want full buffer", got)
	}
}
