package l5k

import "fmt"

// ParseError is returned only for catastrophic input the parser cannot make
// sense of at all. Malformed statements inside otherwise readable text are
// tolerated and dropped, never surfaced as errors.
type ParseError struct {
	Message string
	Line    int // 1-based, 0 when not tied to a line
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }
