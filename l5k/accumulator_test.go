package l5k

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtBufferSingleLine(t *testing.T) {
	var b stmtBuffer
	require.True(t, b.feed("MyTag : DINT := 5;"))
	assert.Equal(t, "MyTag : DINT := 5;", b.flush())
	assert.False(t, b.pending())
}

func TestStmtBufferMultiLine(t *testing.T) {
	var b stmtBuffer
	require.False(t, b.feed(`T : DINT (Description := "a;b",`))
	require.True(t, b.pending())
	require.True(t, b.feed("RADIX := Decimal) := 10;"))
	assert.Equal(t, `T : DINT (Description := "a;b", RADIX := Decimal) := 10;`, b.flush())
	assert.False(t, b.pending())
}

func TestStmtBufferBracketedValue(t *testing.T) {
	var b stmtBuffer
	require.False(t, b.feed("A : REAL[2] := [1.0"))
	require.True(t, b.feed(",2.0];"))
	assert.Equal(t, "A : REAL[2] := [1.0 ,2.0];", b.flush())
}

// A $-escaped quote inside a single-quoted string must not end the string,
// and a semicolon inside it must not end the statement.
func TestStmtBufferEscapedQuote(t *testing.T) {
	var b stmtBuffer
	require.True(t, b.feed(`D : X ('a$';b');`))
	assert.Equal(t, `D : X ('a$';b');`, b.flush())
}

// Quote state carries across chunks: the ';' inside the still-open string on
// the second line must not terminate the statement.
func TestStmtBufferQuoteSpansLines(t *testing.T) {
	var b stmtBuffer
	require.False(t, b.feed(`T : DINT (Description := "line one`))
	require.False(t, b.feed(`still; quoted`))
	require.True(t, b.feed(`end");`))
	assert.Equal(t, `T : DINT (Description := "line one still; quoted end");`, b.flush())
}

func TestStmtBufferResetClearsState(t *testing.T) {
	var b stmtBuffer
	b.feed(`T : DINT (unterminated "string`)
	b.reset()
	require.False(t, b.pending())
	require.True(t, b.feed("U : BOOL;"))
	assert.Equal(t, "U : BOOL;", b.flush())
}
