package toolexec

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultTailLines is the number of output lines kept for diagnostics.
const DefaultTailLines = 20

// maxTailBytes caps the retained output regardless of line length.
const maxTailBytes = 16 << 10

// tailBuffer keeps the end of a stream. Safe for the concurrent stdout and
// stderr copiers of os/exec.
type tailBuffer struct {
	mu    sync.Mutex
	lines int
	buf   []byte
}

func newTailBuffer(lines int) *tailBuffer {
	return &tailBuffer{lines: lines}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - maxTailBytes; over > 0 {
		kept := t.buf[over:]
		// Start on a whole line; a partial first line may split a rune.
		if i := bytes.IndexByte(kept, '\n'); i >= 0 {
			kept = kept[i+1:]
		}
		t.buf = append(t.buf[:0], kept...)
	}
	return len(p), nil
}

// String returns the last non-empty lines, oldest first.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var kept []string
	for _, line := range bytes.Split(t.buf, []byte("\n")) {
		if s := strings.TrimRight(string(line), "\r "); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > t.lines {
		kept = kept[len(kept)-t.lines:]
	}
	return strings.Join(kept, "\n")
}
