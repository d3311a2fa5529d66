package l5k

import "strings"

// stmtBuffer accumulates fragments of a tag statement until a top-level ';'
// is seen. The format allows one logical statement to span arbitrarily many
// physical lines, so the buffer tracks nesting depth and quote state across
// chunk boundaries. Semicolons inside a nested attribute group or inside a
// quoted description do not terminate the statement.
type stmtBuffer struct {
	parts []string
	depth int
	inSQ  bool
	inDQ  bool
	esc   bool
}

func (b *stmtBuffer) reset() {
	b.parts = b.parts[:0]
	b.depth = 0
	b.inSQ = false
	b.inDQ = false
	b.esc = false
}

// pending reports whether the buffer holds a partial statement.
func (b *stmtBuffer) pending() bool { return len(b.parts) > 0 }

// feed appends a chunk and reports whether a complete statement has been
// accumulated.
func (b *stmtBuffer) feed(chunk string) bool {
	b.parts = append(b.parts, chunk)
	complete := false
	for i := 0; i < len(chunk); i++ {
		ch := chunk[i]
		if b.inSQ {
			switch {
			case b.esc:
				b.esc = false
			case ch == '$':
				b.esc = true
			case ch == '\'':
				b.inSQ = false
			}
			continue
		}
		if b.inDQ {
			switch {
			case b.esc:
				b.esc = false
			case ch == '$':
				b.esc = true
			case ch == '"':
				b.inDQ = false
			}
			continue
		}
		switch ch {
		case '\'':
			b.inSQ = true
		case '"':
			b.inDQ = true
		case '(', '[', '{':
			b.depth++
		case ')', ']', '}':
			if b.depth > 0 {
				b.depth--
			}
		case ';':
			if b.depth == 0 {
				complete = true
			}
		}
	}
	return complete
}

// flush joins the accumulated fragments with single spaces, resets the
// buffer, and returns the statement.
func (b *stmtBuffer) flush() string {
	stmt := strings.Join(b.parts, " ")
	b.reset()
	return stmt
}
