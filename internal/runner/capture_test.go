package runner

import (
	"strings"
	"testing"
)

func TestCapture_Pump(t *testing.T) {
	c := newCapture("ready", 1<<10)
	c.pump(strings.NewReader("a\nb\nready\r\nc\nd"))

	select {
	case <-c.ready:
	default:
		t.Fatal("ready not closed")
	}
	out, truncated := c.output()
	if out != "c\nd" {
		t.Errorf("output = %q, want %q", out, "c\nd")
	}
	if truncated {
		t.Error("truncated = true")
	}
	if c.discarded != 2 {
		t.Errorf("discarded = %d, want 2", c.discarded)
	}
}

func TestCapture_NoMarker(t *testing.T) {
	c := newCapture("ready", 1<<10)
	c.pump(strings.NewReader("a\nready now\n"))

	if c.sawMarker() {
		t.Error("marker matched a line that only starts with it")
	}
	if out, _ := c.output(); out != "" {
		t.Errorf("output = %q, want empty", out)
	}
}

func TestLimitWriter(t *testing.T) {
	c := newCapture("", 4)
	c.pump(strings.NewReader("\nabcdef\n"))

	out, truncated := c.output()
	if out != "abcd" || !truncated {
		t.Errorf("output = %q, truncated = %v; want abcd, true", out, truncated)
	}
}
