package stream

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
)

type closeTrackingReader struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (r *closeTrackingReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *closeTrackingReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func drain(ch <-chan []byte) []byte {
	var buf bytes.Buffer
	for chunk := range ch {
		buf.Write(chunk)
	}
	return buf.Bytes()
}

func TestFork_BothSidesSeeEverything(t *testing.T) {
	input := strings.Repeat("0123456789abcdef", 2000)
	rc := &closeTrackingReader{Reader: strings.NewReader(input)}

	a, b := Fork(rc, 8)

	var wg sync.WaitGroup
	var gotA, gotB []byte
	wg.Add(2)
	go func() { defer wg.Done(); gotA = drain(a) }()
	go func() { defer wg.Done(); gotB = drain(b) }()
	wg.Wait()

	if string(gotA) != input {
		t.Errorf("side a got %d bytes, want %d", len(gotA), len(input))
	}
	if string(gotB) != input {
		t.Errorf("side b got %d bytes, want %d", len(gotB), len(input))
	}
	if !rc.isClosed() {
		t.Error("source was not closed after EOF")
	}
}

func TestFork_ChunksAreIndependentCopies(t *testing.T) {
	rc := &closeTrackingReader{Reader: strings.NewReader("shared data")}

	a, b := Fork(rc, 4)

	chunkA := <-a
	chunkB := <-b
	for range a {
	}
	for range b {
	}

	if len(chunkA) == 0 || len(chunkB) == 0 {
		t.Fatal("expected data on both sides")
	}
	chunkA[0] = 'X'
	if chunkB[0] == 'X' {
		t.Error("mutating one side's chunk changed the other side")
	}
}

func TestFork_EmptyStream(t *testing.T) {
	rc := &closeTrackingReader{Reader: strings.NewReader("")}

	a, b := Fork(rc, 1)

	if got := drain(a); len(got) != 0 {
		t.Errorf("side a got %q from empty stream", got)
	}
	if got := drain(b); len(got) != 0 {
		t.Errorf("side b got %q from empty stream", got)
	}
	if !rc.isClosed() {
		t.Error("source was not closed")
	}
}

type errAfterReader struct {
	data []byte
	pos  int
	err  error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, r.err
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *errAfterReader) Close() error { return nil }

func TestFork_MidStreamError(t *testing.T) {
	rc := &errAfterReader{data: []byte("partial output"), err: io.ErrUnexpectedEOF}

	a, b := Fork(rc, 4)

	gotA := drain(a)
	gotB := drain(b)
	if string(gotA) != "partial output" || string(gotB) != "partial output" {
		t.Errorf("sides got %q / %q, want the bytes read before the error", gotA, gotB)
	}
}
