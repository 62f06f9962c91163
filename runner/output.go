package runner

import "sync"

const (
	// defaultOutputTailBytes caps how much captured output is kept per
	// test. A pathological failure can log hundreds of megabytes; only the
	// tail is useful for diagnosis, so older bytes are dropped once the cap
	// is reached.
	defaultOutputTailBytes = 512 * 1024

	// defaultStderrTailBytes caps the stderr capture for the whole
	// `go test` invocation. Stderr carries build errors and tooling
	// failures, which surface near the end of the stream.
	defaultStderrTailBytes = 256 * 1024
)

// tailBuffer keeps the last maxBytes written to it. It is safe for
// concurrent use so it can double as an exec.Cmd output sink.
type tailBuffer struct {
	mu       sync.Mutex
	maxBytes int
	total    int
	tail     []byte
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultOutputTailBytes
	}
	return &tailBuffer{maxBytes: maxBytes}
}

// Write implements io.Writer. It never fails; once the cap is exceeded the
// oldest bytes are discarded.
func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += len(p)
	if len(p) >= b.maxBytes {
		b.tail = append(b.tail[:0], p[len(p)-b.maxBytes:]...)
		return len(p), nil
	}
	b.tail = append(b.tail, p...)
	if excess := len(b.tail) - b.maxBytes; excess > 0 {
		copy(b.tail, b.tail[excess:])
		b.tail = b.tail[:b.maxBytes]
	}
	return len(p), nil
}

func (b *tailBuffer) WriteString(s string) {
	_, _ = b.Write([]byte(s))
}

// String returns the retained tail.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.tail)
}

// TotalBytes is the number of bytes ever written, including discarded ones.
func (b *tailBuffer) TotalBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Truncated reports whether any bytes have been discarded.
func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total > len(b.tail)
}
