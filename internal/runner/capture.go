package runner

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
)

// capture reads the merged output of a target. Lines up to and including
// the ready marker are discarded; everything after it is kept, up to a cap.
type capture struct {
	marker string
	ready  chan struct{} // closed when the marker line is read
	done   chan struct{} // closed at EOF or read error

	mu        sync.Mutex
	buf       bytes.Buffer
	out       limitWriter
	seen      bool
	discarded int
	err       error
}

func newCapture(marker string, limit int) *capture {
	c := &capture{
		marker: marker,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.out = limitWriter{buf: &c.buf, limit: limit}
	return c
}

// pump reads r until EOF. It is the only reader of the pipe, so the
// target never blocks on a full pipe while the runner is sleeping.
func (c *capture) pump(r io.Reader) {
	defer close(c.done)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			c.consume(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.err = err
			}
			return
		}
	}
}

func (c *capture) consume(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen {
		c.out.Write([]byte(line))
		return
	}
	if strings.TrimRightFunc(line, unicode.IsSpace) == c.marker {
		c.seen = true
		close(c.ready)
		return
	}
	c.discarded++
}

func (c *capture) sawMarker() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}

func (c *capture) output() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String(), c.out.truncated
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = w.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
