package result

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoResult is returned by Extract when no line carries the prefix.
var ErrNoResult = errors.New("no result line")

// ParseError describes a result line whose payload is not a JSON object.
type ParseError struct {
	Line    int // 1-based line number within the output
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: malformed result %q: %v", e.Line, truncate(e.Payload, 80), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract returns the record carried by the first line of output that
// starts with prefix. Later result lines are ignored. A missing line
// yields ErrNoResult and an undecodable payload a *ParseError; callers
// treat both as a null result rather than a failure.
func Extract(output, prefix string) (*Value, error) {
	for i, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		payload, ok := strings.CutPrefix(line, prefix)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		v, err := Parse(payload)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Payload: payload, Err: err}
		}
		return v, nil
	}
	return nil, ErrNoResult
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
